package scanner

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"mvault/internal/dedup"
	"mvault/internal/logging"
	"mvault/internal/store"
	"mvault/internal/testsupport"
	"mvault/internal/textutil"
)

type scanHarness struct {
	store      *store.Store
	scanner    *Scanner
	libraryDir string
}

func newScanHarness(t *testing.T, threshold float64) *scanHarness {
	t.Helper()
	root := t.TempDir()
	s, err := store.Open(filepath.Join(root, "mvault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	libraryDir := filepath.Join(root, "library")
	if err := os.MkdirAll(libraryDir, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	sc := New(s, dedup.NewIndex(s, threshold), libraryDir, []string{".mp4", ".mkv"}, nil, logging.NewNop())
	return &scanHarness{store: s, scanner: sc, libraryDir: libraryDir}
}

func (h *scanHarness) writeFile(t *testing.T, artist, name string) string {
	t.Helper()
	path := filepath.Join(h.libraryDir, artist, name)
	testsupport.WriteFile(t, path, 64)
	return path
}

func TestScanImportsUnknownFile(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	path := h.writeFile(t, "New Artist", "Fresh Track.mp4")

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.FilesSeen != 1 || summary.Created != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	artist, err := h.store.GetArtistByName(ctx, "New Artist")
	if err != nil {
		t.Fatalf("expected artist to be created: %v", err)
	}
	candidates, err := h.store.ListByArtist(ctx, artist.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(candidates) != 1 {
		t.Fatalf("candidates = %d, want 1", len(candidates))
	}
	imported := candidates[0]
	if imported.Status != store.StatusOrganized {
		t.Fatalf("status = %s, want organized", imported.Status)
	}
	if imported.Title != "Fresh Track" {
		t.Fatalf("title = %q", imported.Title)
	}
	if imported.LibraryPath != path {
		t.Fatalf("library_path = %q, want %q", imported.LibraryPath, path)
	}
	if imported.SourceLocator != "local:New Artist/Fresh Track.mp4" {
		t.Fatalf("locator = %q", imported.SourceLocator)
	}
}

func TestScanStripsArtistPrefixFromFileName(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	h.writeFile(t, "Artist", "Artist - Old Rip.mp4")

	if _, err := h.scanner.Scan(ctx); err != nil {
		t.Fatalf("scan: %v", err)
	}
	artist, err := h.store.GetArtistByName(ctx, "Artist")
	if err != nil {
		t.Fatalf("get artist: %v", err)
	}
	candidates, err := h.store.ListByArtist(ctx, artist.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(candidates) != 1 || candidates[0].Title != "Old Rip" {
		t.Fatalf("candidates = %+v, want one titled %q", candidates, "Old Rip")
	}
}

func TestScanSatisfiesWantedCandidate(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	artist, err := h.store.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	candidate, _, err := h.store.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Comeback",
		NormalizedTitle: textutil.NormalizeTitle("Comeback"),
		SourceLocator:   "yt:comeback",
		Status:          store.StatusWanted,
	})
	if err != nil {
		t.Fatalf("seed wanted: %v", err)
	}
	path := h.writeFile(t, "Artist", "Comeback.mp4")

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Satisfied != 1 || summary.Created != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	satisfied, err := h.store.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if satisfied.Status != store.StatusOrganized {
		t.Fatalf("status = %s, want organized", satisfied.Status)
	}
	if satisfied.LibraryPath != path {
		t.Fatalf("library_path = %q, want %q", satisfied.LibraryPath, path)
	}
}

func TestScanSatisfiesFailedCandidate(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	artist, err := h.store.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	candidate, _, err := h.store.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Lost Cut",
		NormalizedTitle: textutil.NormalizeTitle("Lost Cut"),
		SourceLocator:   "yt:lost",
		Status:          store.StatusFailed,
	})
	if err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	h.writeFile(t, "Artist", "Lost Cut.mkv")

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Satisfied != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	satisfied, err := h.store.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if satisfied.Status != store.StatusOrganized {
		t.Fatalf("status = %s, want organized", satisfied.Status)
	}
}

func TestScanDemotesMissingFile(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	artist, err := h.store.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	candidate, _, err := h.store.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Vanished",
		NormalizedTitle: textutil.NormalizeTitle("Vanished"),
		SourceLocator:   "yt:vanished",
		Status:          store.StatusOrganized,
		LibraryPath:     filepath.Join(h.libraryDir, "Artist", "Vanished.mp4"),
	})
	if err != nil {
		t.Fatalf("seed organized: %v", err)
	}

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Demoted != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	demoted, err := h.store.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if demoted.Status != store.StatusWanted {
		t.Fatalf("status = %s, want wanted", demoted.Status)
	}
	if demoted.LibraryPath != "" {
		t.Fatalf("library_path = %q, want cleared", demoted.LibraryPath)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()
	h.writeFile(t, "Artist", "Track.mp4")

	if _, err := h.scanner.Scan(ctx); err != nil {
		t.Fatalf("first scan: %v", err)
	}
	second, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("second scan: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("second scan created %d rows", second.Created)
	}
	if second.Matched != 1 {
		t.Fatalf("second scan matched %d, want 1", second.Matched)
	}

	all, err := h.store.ListByStatus(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("candidate rows = %d, want 1", len(all))
	}
}

func TestScanLeavesAmbiguousFileForReview(t *testing.T) {
	h := newScanHarness(t, 0.5)
	ctx := context.Background()
	artist, err := h.store.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	if _, _, err := h.store.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Midnight Drive Official Video",
		NormalizedTitle: textutil.NormalizeTitle("Midnight Drive Official Video"),
		SourceLocator:   "yt:midnight",
		Status:          store.StatusWanted,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h.writeFile(t, "Artist", "Midnight Drive.mp4")

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Ambiguous != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Created != 0 || summary.Satisfied != 0 {
		t.Fatalf("ambiguous file must not be imported or matched: %+v", summary)
	}
}

func TestScanIgnoresUnrelatedFiles(t *testing.T) {
	h := newScanHarness(t, 0.85)
	ctx := context.Background()

	// Wrong extension and a file dropped at the library root.
	h.writeFile(t, "Artist", "cover.jpg")
	if err := os.WriteFile(filepath.Join(h.libraryDir, "stray.mp4"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write stray: %v", err)
	}

	summary, err := h.scanner.Scan(ctx)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if summary.Created != 0 {
		t.Fatalf("created = %d, want 0", summary.Created)
	}
	if summary.FilesSeen != 1 {
		t.Fatalf("files seen = %d, want 1 (jpg filtered out)", summary.FilesSeen)
	}
}

func TestScanMissingLibraryDir(t *testing.T) {
	h := newScanHarness(t, 0.85)
	if err := os.RemoveAll(h.libraryDir); err != nil {
		t.Fatalf("remove library: %v", err)
	}
	summary, err := h.scanner.Scan(context.Background())
	if err != nil {
		t.Fatalf("scan of absent library must not fail: %v", err)
	}
	if summary.FilesSeen != 0 {
		t.Fatalf("summary = %+v", summary)
	}
}
