package ytdlp_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mvault/internal/fetch"
	"mvault/internal/fetchers/ytdlp"
)

type fakeExecutor struct {
	lastBinary string
	lastArgs   []string
	lines      []string
	err        error
	onRun      func(args []string)
}

func (f *fakeExecutor) Run(_ context.Context, binary string, args []string, onLine func(string)) error {
	f.lastBinary = binary
	f.lastArgs = args
	if f.onRun != nil {
		f.onRun(args)
	}
	for _, line := range f.lines {
		onLine(line)
	}
	return f.err
}

func newTestClient(t *testing.T, executor ytdlp.Executor) *ytdlp.Client {
	t.Helper()
	client, err := ytdlp.New("yt-dlp", []string{"--no-mtime"}, ytdlp.WithExecutor(executor))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

func TestNewRequiresBinary(t *testing.T) {
	if _, err := ytdlp.New("  ", nil); err == nil {
		t.Fatal("expected error for empty binary")
	}
}

func TestFetchResolvesLocatorAndReturnsFile(t *testing.T) {
	target := t.TempDir()
	executor := &fakeExecutor{
		onRun: func([]string) {
			if err := os.WriteFile(filepath.Join(target, "Artist - Track.mp4"), []byte("video"), 0o644); err != nil {
				t.Fatalf("write download: %v", err)
			}
		},
	}
	client := newTestClient(t, executor)

	result, err := client.Fetch(context.Background(), fetch.Request{
		SourceLocator: "yt:abc123",
		TargetDir:     target,
		QualityFormat: "best",
	})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filepath.Base(result.FilePath) != "Artist - Track.mp4" {
		t.Fatalf("file = %q", result.FilePath)
	}
	if result.SizeBytes != int64(len("video")) {
		t.Fatalf("size = %d", result.SizeBytes)
	}

	args := executor.lastArgs
	if args[len(args)-1] != "https://www.youtube.com/watch?v=abc123" {
		t.Fatalf("url argument = %q", args[len(args)-1])
	}
	var sawFormat, sawExtra bool
	for i, arg := range args {
		if arg == "--format" && i+1 < len(args) && args[i+1] == "best" {
			sawFormat = true
		}
		if arg == "--no-mtime" {
			sawExtra = true
		}
	}
	if !sawFormat || !sawExtra {
		t.Fatalf("args missing format or extra flags: %v", args)
	}
}

func TestFetchIgnoresPartialFiles(t *testing.T) {
	target := t.TempDir()
	executor := &fakeExecutor{
		onRun: func([]string) {
			for name, content := range map[string]string{
				"Track.mp4":      "video",
				"Track.mp4.part": "partial",
			} {
				if err := os.WriteFile(filepath.Join(target, name), []byte(content), 0o644); err != nil {
					t.Fatalf("write %s: %v", name, err)
				}
			}
		},
	}
	client := newTestClient(t, executor)

	result, err := client.Fetch(context.Background(), fetch.Request{SourceLocator: "yt:x", TargetDir: target})
	if err != nil {
		t.Fatalf("Fetch returned error: %v", err)
	}
	if filepath.Base(result.FilePath) != "Track.mp4" {
		t.Fatalf("picked %q, want the completed file", result.FilePath)
	}
}

func TestFetchClassifiesRemovedVideoAsTerminal(t *testing.T) {
	executor := &fakeExecutor{
		lines: []string{"ERROR: Video unavailable. This video has been removed by the uploader"},
		err:   errors.New("exit status 1"),
	}
	client := newTestClient(t, executor)

	_, err := client.Fetch(context.Background(), fetch.Request{SourceLocator: "yt:gone", TargetDir: t.TempDir()})
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *fetch.Error", err)
	}
	if fetchErr.Retryable {
		t.Fatalf("removed video must be terminal: %v", fetchErr)
	}
}

func TestFetchClassifiesThrottlingAsRetryable(t *testing.T) {
	executor := &fakeExecutor{
		lines: []string{"ERROR: HTTP Error 429: Too Many Requests"},
		err:   errors.New("exit status 1"),
	}
	client := newTestClient(t, executor)

	_, err := client.Fetch(context.Background(), fetch.Request{SourceLocator: "yt:busy", TargetDir: t.TempDir()})
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *fetch.Error", err)
	}
	if !fetchErr.Retryable {
		t.Fatalf("throttling must be retryable: %v", fetchErr)
	}
}

func TestFetchRejectsLocalLocator(t *testing.T) {
	client := newTestClient(t, &fakeExecutor{})
	_, err := client.Fetch(context.Background(), fetch.Request{SourceLocator: "local:Artist/file.mp4", TargetDir: t.TempDir()})
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) || fetchErr.Retryable {
		t.Fatalf("local locator must be a terminal failure, got %v", err)
	}
}

func TestFetchFailsWhenNoOutputProduced(t *testing.T) {
	client := newTestClient(t, &fakeExecutor{})
	_, err := client.Fetch(context.Background(), fetch.Request{SourceLocator: "yt:empty", TargetDir: t.TempDir()})
	var fetchErr *fetch.Error
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *fetch.Error", err)
	}
	if !fetchErr.Retryable {
		t.Fatalf("missing output should be retryable: %v", fetchErr)
	}
}
