// Package scanner reconciles the candidate store against the library on
// disk: files are correlated back to candidates, unknown files become
// synthetic organized candidates, and organized candidates whose file
// vanished are demoted for re-download.
//
// The scanner never deletes or moves files; the filesystem is only read and
// imported from.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"mvault/internal/dedup"
	"mvault/internal/download"
	"mvault/internal/logging"
	"mvault/internal/store"
	"mvault/internal/textutil"
)

// Storage is the slice of store the scanner needs.
type Storage interface {
	ListWithLibraryPath(ctx context.Context) ([]*store.Candidate, error)
	GetArtistByName(ctx context.Context, name string) (*store.Artist, error)
	AddArtist(ctx context.Context, name, providerID string) (*store.Artist, error)
	InsertCandidate(ctx context.Context, nc store.NewCandidate) (*store.Candidate, bool, error)
	MarkImported(ctx context.Context, id int64, libraryPath string) (bool, error)
	SetLibraryPath(ctx context.Context, id int64, path string) error
	DemoteMissing(ctx context.Context, id int64) (bool, error)
}

// Summary reports one reconciliation pass.
type Summary struct {
	FilesSeen int
	Matched   int
	Satisfied int
	Created   int
	Demoted   int
	Ambiguous int
}

// Scanner walks the library and reconciles it with the store.
type Scanner struct {
	storage    Storage
	index      *dedup.Index
	libraryDir string
	allowedExt map[string]struct{}
	bus        *download.Bus
	logger     *slog.Logger
}

// New wires a scanner. The bus may be nil.
func New(
	storage Storage,
	index *dedup.Index,
	libraryDir string,
	allowedExtensions []string,
	bus *download.Bus,
	logger *slog.Logger,
) *Scanner {
	allowed := make(map[string]struct{}, len(allowedExtensions))
	for _, ext := range allowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	return &Scanner{
		storage:    storage,
		index:      index,
		libraryDir: libraryDir,
		allowedExt: allowed,
		bus:        bus,
		logger:     logging.NewComponentLogger(logger, "scanner"),
	}
}

// Scan runs one reconciliation pass.
func (s *Scanner) Scan(ctx context.Context) (Summary, error) {
	var summary Summary

	tracked, err := s.storage.ListWithLibraryPath(ctx)
	if err != nil {
		return summary, fmt.Errorf("list tracked files: %w", err)
	}
	byPath := make(map[string]*store.Candidate, len(tracked))
	for _, candidate := range tracked {
		byPath[candidate.LibraryPath] = candidate
	}

	walkErr := filepath.WalkDir(s.libraryDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.libraryDir {
				return filepath.SkipAll
			}
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if _, ok := s.allowedExt[ext]; !ok {
			return nil
		}
		summary.FilesSeen++

		if _, tracked := byPath[path]; tracked {
			summary.Matched++
			return nil
		}
		return s.reconcileFile(ctx, path, &summary)
	})
	if walkErr != nil {
		return summary, fmt.Errorf("walk library: %w", walkErr)
	}

	for _, candidate := range tracked {
		if candidate.Status != store.StatusOrganized {
			continue
		}
		if _, err := os.Stat(candidate.LibraryPath); err == nil || !errors.Is(err, fs.ErrNotExist) {
			continue
		}
		ok, err := s.storage.DemoteMissing(ctx, candidate.ID)
		if err != nil {
			return summary, fmt.Errorf("demote candidate %d: %w", candidate.ID, err)
		}
		if ok {
			summary.Demoted++
			s.publish(candidate.ID, store.StatusOrganized, store.StatusWanted, "library file missing")
			s.logger.Info(
				"demoted candidate with missing file",
				logging.Int64(logging.FieldCandidateID, candidate.ID),
				logging.String("path", candidate.LibraryPath),
			)
		}
	}

	return summary, nil
}

// reconcileFile handles a library file the store does not track by path.
func (s *Scanner) reconcileFile(ctx context.Context, path string, summary *Summary) error {
	artistName, title, ok := s.identify(path)
	if !ok {
		s.logger.Warn("file outside artist layout, ignoring", logging.String("path", path))
		return nil
	}

	artist, err := s.storage.GetArtistByName(ctx, artistName)
	if errors.Is(err, store.ErrNotFound) {
		artist, err = s.storage.AddArtist(ctx, artistName, "")
	}
	if err != nil {
		return fmt.Errorf("resolve artist %q: %w", artistName, err)
	}

	match, suggestions, err := s.index.FindExisting(ctx, artist.ID, "", title)
	if err != nil {
		return fmt.Errorf("correlate %q: %w", path, err)
	}

	if match != nil {
		return s.satisfyExisting(ctx, match.Candidate, path, summary)
	}

	if len(suggestions) > 0 {
		summary.Ambiguous++
		for _, suggestion := range suggestions {
			s.logger.Warn(
				"file resembles a tracked candidate, leaving for review",
				logging.String("path", path),
				logging.Int64("existing_candidate", suggestion.Candidate.ID),
				logging.Float64("similarity", suggestion.Similarity),
			)
		}
		return nil
	}

	rel, relErr := filepath.Rel(s.libraryDir, path)
	if relErr != nil {
		rel = path
	}
	_, created, err := s.storage.InsertCandidate(ctx, store.NewCandidate{
		ArtistID:        artist.ID,
		Title:           title,
		NormalizedTitle: textutil.NormalizeTitle(title),
		SourceLocator:   "local:" + filepath.ToSlash(rel),
		Status:          store.StatusOrganized,
		LibraryPath:     path,
	})
	if err != nil {
		return fmt.Errorf("import %q: %w", path, err)
	}
	if created {
		summary.Created++
		s.logger.Info(
			"imported unclaimed file",
			logging.String("path", path),
			logging.String("artist", artistName),
			logging.String("title", title),
		)
	}
	return nil
}

func (s *Scanner) satisfyExisting(ctx context.Context, candidate *store.Candidate, path string, summary *Summary) error {
	switch candidate.Status {
	case store.StatusOrganized:
		if candidate.LibraryPath == "" {
			if err := s.storage.SetLibraryPath(ctx, candidate.ID, path); err != nil {
				return fmt.Errorf("record path for candidate %d: %w", candidate.ID, err)
			}
			summary.Matched++
			return nil
		}
		s.logger.Warn(
			"duplicate file for organized candidate",
			logging.Int64(logging.FieldCandidateID, candidate.ID),
			logging.String("path", path),
			logging.String("recorded_path", candidate.LibraryPath),
		)
		return nil
	case store.StatusWanted, store.StatusFailed:
		from := candidate.Status
		ok, err := s.storage.MarkImported(ctx, candidate.ID, path)
		if err != nil {
			return fmt.Errorf("satisfy candidate %d: %w", candidate.ID, err)
		}
		if ok {
			summary.Satisfied++
			s.publish(candidate.ID, from, store.StatusOrganized, "satisfied by file on disk")
			s.logger.Info(
				"existing candidate satisfied by file on disk",
				logging.Int64(logging.FieldCandidateID, candidate.ID),
				logging.String("path", path),
			)
		}
		return nil
	default:
		// Queued, downloading, discovered, skipped: in flight or an operator
		// decision; the scanner does not override either.
		s.logger.Info(
			"file present for candidate outside importable statuses",
			logging.Int64(logging.FieldCandidateID, candidate.ID),
			logging.String("status", string(candidate.Status)),
			logging.String("path", path),
		)
		return nil
	}
}

// identify derives (artist, title) from a library path. Layout is
// <library>/<Artist>/<Title>.<ext>; a manually dropped file may also carry
// an "<Artist> - " prefix in its name, which is stripped.
func (s *Scanner) identify(path string) (artist, title string, ok bool) {
	rel, err := filepath.Rel(s.libraryDir, path)
	if err != nil {
		return "", "", false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 {
		return "", "", false
	}
	artist = parts[0]

	base := filepath.Base(path)
	title = strings.TrimSuffix(base, filepath.Ext(base))
	if stripped, found := strings.CutPrefix(title, artist+" - "); found {
		title = stripped
	}
	title = strings.TrimSpace(title)
	if artist == "" || title == "" {
		return "", "", false
	}
	return artist, title, true
}

func (s *Scanner) publish(id int64, from, to store.Status, message string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(download.Event{CandidateID: id, From: from, To: to, Message: message})
}
