// Package config loads, normalizes, and validates mvault configuration.
package config
