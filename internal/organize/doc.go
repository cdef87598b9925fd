// Package organize maps downloads onto the library layout and places files
// with an atomic rename so readers never observe partial content.
package organize
