// Package ytdlp wraps the yt-dlp CLI behind the fetch contract.
package ytdlp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"mvault/internal/fetch"
)

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(executor Executor) Option {
	return func(c *Client) {
		if executor != nil {
			c.exec = executor
		}
	}
}

// Client wraps yt-dlp CLI interactions.
type Client struct {
	binary    string
	extraArgs []string
	exec      Executor
}

var _ fetch.Fetcher = (*Client)(nil)

// New constructs a yt-dlp client.
func New(binary string, extraArgs []string, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("yt-dlp binary required")
	}
	client := &Client{
		binary:    binary,
		extraArgs: append([]string(nil), extraArgs...),
		exec:      commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Fetch downloads the video behind the locator into the request's target
// directory and returns the resulting file.
func (c *Client) Fetch(ctx context.Context, req fetch.Request) (fetch.Result, error) {
	if req.TargetDir == "" {
		return fetch.Result{}, fetch.NewError("target directory required", false, nil)
	}
	target, err := resolveLocator(req.SourceLocator)
	if err != nil {
		return fetch.Result{}, err
	}

	args := []string{
		"--no-playlist",
		"--no-progress",
		"--newline",
		"--paths", req.TargetDir,
		"--output", "%(title)s.%(ext)s",
	}
	if req.QualityFormat != "" {
		args = append(args, "--format", req.QualityFormat)
	}
	args = append(args, c.extraArgs...)
	args = append(args, target)

	var tail outputTail
	runErr := c.exec.Run(ctx, c.binary, args, tail.add)
	if runErr != nil {
		if ctx.Err() != nil {
			return fetch.Result{}, fetch.NewError("download interrupted", true, ctx.Err())
		}
		return fetch.Result{}, classifyFailure(runErr, tail.text())
	}

	return newestFile(req.TargetDir)
}

// resolveLocator turns a stored locator into something yt-dlp accepts.
func resolveLocator(locator string) (string, error) {
	locator = strings.TrimSpace(locator)
	switch {
	case locator == "":
		return "", fetch.NewError("empty source locator", false, nil)
	case strings.HasPrefix(locator, "http://"), strings.HasPrefix(locator, "https://"):
		return locator, nil
	case strings.HasPrefix(locator, "yt:"):
		return "https://www.youtube.com/watch?v=" + strings.TrimPrefix(locator, "yt:"), nil
	case strings.HasPrefix(locator, "vimeo:"):
		return "https://vimeo.com/" + strings.TrimPrefix(locator, "vimeo:"), nil
	case strings.HasPrefix(locator, "local:"):
		return "", fetch.NewError("local locators are not downloadable", false, nil)
	default:
		return "", fetch.NewError(fmt.Sprintf("unsupported locator %q", locator), false, nil)
	}
}

// terminalMarkers are yt-dlp messages that retrying cannot fix.
var terminalMarkers = []string{
	"video unavailable",
	"has been removed",
	"private video",
	"account associated with this video has been terminated",
	"this video is not available",
	"copyright",
	"unsupported url",
}

var throttleMarkers = []string{
	"429",
	"rate-limit",
	"rate limit",
	"too many requests",
}

func classifyFailure(runErr error, output string) error {
	lowered := strings.ToLower(output)
	for _, marker := range terminalMarkers {
		if strings.Contains(lowered, marker) {
			return fetch.NewError("source gone: "+firstLine(output), false, runErr)
		}
	}
	for _, marker := range throttleMarkers {
		if strings.Contains(lowered, marker) {
			return fetch.NewError("throttled: "+firstLine(output), true, runErr)
		}
	}
	reason := "yt-dlp failed"
	if line := firstLine(output); line != "" {
		reason = reason + ": " + line
	}
	return fetch.NewError(reason, true, runErr)
}

func firstLine(output string) string {
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			return line
		}
	}
	return ""
}

// newestFile returns the most recently modified regular file in dir. The
// target directory is per-job staging, so this is the downloaded video.
func newestFile(dir string) (fetch.Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fetch.Result{}, fetch.NewError("read staging directory", true, err)
	}
	var (
		best     string
		bestInfo os.FileInfo
	)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasSuffix(name, ".part") || strings.HasSuffix(name, ".ytdl") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if bestInfo == nil || info.ModTime().After(bestInfo.ModTime()) {
			best = filepath.Join(dir, name)
			bestInfo = info
		}
	}
	if bestInfo == nil {
		return fetch.Result{}, fetch.NewError("yt-dlp produced no output file", true, nil)
	}
	return fetch.Result{FilePath: best, SizeBytes: bestInfo.Size()}, nil
}

// outputTail keeps the last few lines of tool output for error reporting.
type outputTail struct {
	mu    sync.Mutex
	lines []string
}

const tailLimit = 20

func (t *outputTail) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lines = append(t.lines, line)
	if len(t.lines) > tailLimit {
		t.lines = t.lines[len(t.lines)-tailLimit:]
	}
}

func (t *outputTail) text() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return strings.Join(t.lines, "\n")
}

type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string, onLine func(string)) error {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start %s: %w", binary, err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if onLine != nil {
			onLine(scanner.Text())
		}
	}
	if err := scanner.Err(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		_ = cmd.Wait()
		return fmt.Errorf("read %s output: %w", binary, err)
	}
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s exited: %w", binary, err)
	}
	return nil
}
