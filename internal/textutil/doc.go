// Package textutil provides text processing utilities for title
// normalization, similarity, and filename sanitization.
//
// The primary use cases are:
//   - Normalizing artist and video titles into canonical comparison keys
//   - Creating token-based fingerprints from titles for fuzzy comparison
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Normalization lowercases, strips combining marks, and collapses
// non-alphanumeric runs so titles from different catalog providers compare
// equal when they name the same video.
package textutil
