package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mvault/internal/store"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	content := fmt.Sprintf(`[paths]
library_dir = %q
staging_dir = %q
log_dir = %q
data_dir = %q

[provider]
api_key = "test-key"
`,
		filepath.Join(root, "library"),
		filepath.Join(root, "staging"),
		filepath.Join(root, "logs"),
		filepath.Join(root, "data"),
	)
	path := filepath.Join(root, "mvault.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func runCommand(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func openConfiguredStore(t *testing.T, configPath string) *store.Store {
	t.Helper()
	dataDir := filepath.Join(filepath.Dir(configPath), "data")
	s, err := store.Open(filepath.Join(dataDir, "mvault.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestArtistAddAndList(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCommand(t, configPath, "artist", "add", "Radiohead", "--provider-id", "77")
	if err != nil {
		t.Fatalf("artist add: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Radiohead") {
		t.Fatalf("add output = %q", out)
	}

	out, err = runCommand(t, configPath, "artist", "list")
	if err != nil {
		t.Fatalf("artist list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Radiohead") || !strings.Contains(out, "77") {
		t.Fatalf("list output = %q", out)
	}
}

func TestArtistPolicyOverrides(t *testing.T) {
	configPath := writeTestConfig(t)
	s := openConfiguredStore(t, configPath)
	ctx := context.Background()
	artist, err := s.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	id := fmt.Sprintf("%d", artist.ID)

	if out, err := runCommand(t, configPath, "artist", "policy", id, "--include", "official,live"); err != nil {
		t.Fatalf("policy set: %v\n%s", err, out)
	}
	updated, err := s.GetArtist(ctx, artist.ID)
	if err != nil {
		t.Fatalf("get artist: %v", err)
	}
	if len(updated.IncludeKinds) != 2 || updated.IncludeKinds[0] != "official" || updated.IncludeKinds[1] != "live" {
		t.Fatalf("include kinds = %v", updated.IncludeKinds)
	}
	if updated.ExcludeKinds != nil {
		t.Fatalf("exclude kinds = %v, want inherited", updated.ExcludeKinds)
	}

	if out, err := runCommand(t, configPath, "artist", "policy", id, "--clear"); err != nil {
		t.Fatalf("policy clear: %v\n%s", err, out)
	}
	cleared, err := s.GetArtist(ctx, artist.ID)
	if err != nil {
		t.Fatalf("get artist: %v", err)
	}
	if cleared.IncludeKinds != nil || cleared.ExcludeKinds != nil {
		t.Fatalf("overrides not cleared: %v / %v", cleared.IncludeKinds, cleared.ExcludeKinds)
	}

	if _, err := runCommand(t, configPath, "artist", "policy", id); err == nil {
		t.Fatalf("policy without flags must fail")
	}
}

func TestStatusShowsCounts(t *testing.T) {
	configPath := writeTestConfig(t)
	s := openConfiguredStore(t, configPath)
	ctx := context.Background()
	artist, err := s.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	if _, _, err := s.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Track",
		NormalizedTitle: "track",
		SourceLocator:   "yt:track",
		Status:          store.StatusWanted,
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}

	out, err := runCommand(t, configPath, "status")
	if err != nil {
		t.Fatalf("status: %v\n%s", err, out)
	}
	if !strings.Contains(out, "wanted") {
		t.Fatalf("status output missing counts: %q", out)
	}
}

func TestSkipAndRequeueCommands(t *testing.T) {
	configPath := writeTestConfig(t)
	s := openConfiguredStore(t, configPath)
	ctx := context.Background()
	artist, err := s.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	candidate, _, err := s.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           "Track",
		NormalizedTitle: "track",
		SourceLocator:   "yt:track",
		Status:          store.StatusWanted,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	id := fmt.Sprintf("%d", candidate.ID)

	if out, err := runCommand(t, configPath, "skip", id); err != nil {
		t.Fatalf("skip: %v\n%s", err, out)
	}
	skipped, err := s.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if skipped.Status != store.StatusSkipped {
		t.Fatalf("status = %s, want skipped", skipped.Status)
	}

	if out, err := runCommand(t, configPath, "requeue", id); err != nil {
		t.Fatalf("requeue: %v\n%s", err, out)
	}
	requeued, err := s.GetCandidate(ctx, candidate.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if requeued.Status != store.StatusWanted {
		t.Fatalf("status = %s, want wanted", requeued.Status)
	}

	if _, err := runCommand(t, configPath, "requeue", id); err == nil {
		t.Fatalf("requeue of a wanted candidate must fail")
	}
}

func TestListFiltersByStatus(t *testing.T) {
	configPath := writeTestConfig(t)
	s := openConfiguredStore(t, configPath)
	ctx := context.Background()
	artist, err := s.AddArtist(ctx, "Artist", "")
	if err != nil {
		t.Fatalf("add artist: %v", err)
	}
	for i, status := range []store.Status{store.StatusWanted, store.StatusFailed} {
		if _, _, err := s.InsertCandidate(ctx, store.NewCandidate{
			ArtistID:        artist.ID,
			Title:           fmt.Sprintf("Track %d", i),
			NormalizedTitle: fmt.Sprintf("track %d", i),
			SourceLocator:   fmt.Sprintf("yt:%d", i),
			Status:          status,
		}); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	out, err := runCommand(t, configPath, "list", "--status", "failed")
	if err != nil {
		t.Fatalf("list: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Track 1") || strings.Contains(out, "Track 0") {
		t.Fatalf("filtered output = %q", out)
	}

	if _, err := runCommand(t, configPath, "list", "--status", "nonsense"); err == nil {
		t.Fatalf("unknown status must be rejected")
	}
}

func TestConfigInitWritesSample(t *testing.T) {
	configPath := writeTestConfig(t)
	target := filepath.Join(t.TempDir(), "sample.toml")

	out, err := runCommand(t, configPath, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("sample not written: %v", err)
	}

	if _, err := runCommand(t, configPath, "config", "init", "--path", target); err == nil {
		t.Fatalf("second init without --overwrite must fail")
	}
}
