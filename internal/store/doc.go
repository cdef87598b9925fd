// Package store persists artists and acquisition candidates in SQLite.
//
// Candidate rows carry the acquisition status machine. All status changes go
// through conditional updates keyed on the expected prior status, so
// concurrent daemon and CLI writers cannot double-claim or resurrect rows.
package store
