// Package download runs the acquisition pipeline: an in-memory queue of
// candidate ids feeding a fixed worker pool that claims, fetches, verifies,
// and places videos.
//
// The queue enforces at most one outstanding job per candidate. The durable
// status lives in the store; the queue only decides ordering and retry
// delays, so a crash loses nothing that matters.
package download
