package testsupport

import (
	"context"
	"testing"

	"mvault/internal/config"
	"mvault/internal/store"
	"mvault/internal/textutil"
)

// MustOpenStore opens a store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	s, err := store.Open(cfg.DatabasePath())
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})
	return s
}

// NewCandidate inserts a candidate for tests, creating the artist on demand.
func NewCandidate(t testing.TB, s *store.Store, artistName, title, locator string, status store.Status) *store.Candidate {
	t.Helper()

	ctx := context.Background()
	artist, err := s.AddArtist(ctx, artistName, "")
	if err != nil {
		t.Fatalf("store.AddArtist: %v", err)
	}
	candidate, _, err := s.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           title,
		NormalizedTitle: textutil.NormalizeTitle(title),
		SourceLocator:   locator,
		Status:          status,
	})
	if err != nil {
		t.Fatalf("store.InsertCandidate: %v", err)
	}
	return candidate
}
