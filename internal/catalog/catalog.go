// Package catalog defines the provider contract for video discovery.
package catalog

import (
	"context"
	"time"
)

// Artist identifies a monitored artist for provider queries.
type Artist struct {
	ID         int64
	Name       string
	ProviderID string
}

// Candidate is a video the provider knows about for an artist. Checksum is
// an optional SHA-256 hex hint; most providers leave it empty.
type Candidate struct {
	Title         string
	Kind          string
	SourceLocator string
	Checksum      string
	ReleasedAt    time.Time
	DurationSec   int
}

// Provider lists the known videos for an artist.
//
// Implementations map transport failures onto the services error taxonomy:
// unavailable endpoints and 5xx responses are retryable, a 429 is rate
// limited, malformed payloads are validation failures.
type Provider interface {
	ListCandidates(ctx context.Context, artist Artist) ([]Candidate, error)
}
