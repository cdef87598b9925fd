package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// NewCandidate carries the fields needed to insert a discovery result.
type NewCandidate struct {
	ArtistID        int64
	Title           string
	NormalizedTitle string
	Kind            string
	SourceLocator   string
	Status          Status
	Checksum        string
	LibraryPath     string
	ReleasedAt      *time.Time
	DurationSec     int
}

// InsertCandidate inserts a candidate unless the (artist, locator) pair
// already exists. It returns the stored row and whether a new row was created.
func (s *Store) InsertCandidate(ctx context.Context, nc NewCandidate) (*Candidate, bool, error) {
	if nc.ArtistID <= 0 {
		return nil, false, errors.New("candidate requires an artist id")
	}
	if nc.SourceLocator == "" {
		return nil, false, errors.New("candidate requires a source locator")
	}
	status := nc.Status
	if status == "" {
		status = StatusDiscovered
	}
	if !status.Valid() {
		return nil, false, fmt.Errorf("invalid candidate status %q", status)
	}

	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO candidates (artist_id, title, normalized_title, kind, source_locator, status, checksum, library_path, released_at, duration_sec, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT (artist_id, source_locator) DO NOTHING`,
		nc.ArtistID,
		nc.Title,
		nc.NormalizedTitle,
		nullableString(nc.Kind),
		nc.SourceLocator,
		string(status),
		nullableString(nc.Checksum),
		nullableString(nc.LibraryPath),
		nullableTime(nc.ReleasedAt),
		nc.DurationSec,
		now,
		now,
	)
	if err != nil {
		return nil, false, fmt.Errorf("insert candidate: %w", err)
	}

	inserted, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("insert candidate rows: %w", err)
	}
	if inserted > 0 {
		id, err := res.LastInsertId()
		if err != nil {
			return nil, false, fmt.Errorf("insert candidate id: %w", err)
		}
		candidate, err := s.GetCandidate(ctx, id)
		return candidate, true, err
	}

	candidate, err := s.FindByLocator(ctx, nc.ArtistID, nc.SourceLocator)
	return candidate, false, err
}

// GetCandidate fetches a candidate by id.
func (s *Store) GetCandidate(ctx context.Context, id int64) (*Candidate, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM candidates WHERE id = ?`, id)
	candidate, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get candidate: %w", err)
	}
	return candidate, nil
}

// FindByLocator fetches the candidate with the given source locator for an artist.
func (s *Store) FindByLocator(ctx context.Context, artistID int64, locator string) (*Candidate, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE artist_id = ? AND source_locator = ?`,
		artistID, locator,
	)
	candidate, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find candidate by locator: %w", err)
	}
	return candidate, nil
}

// FindByNormalizedTitle fetches candidates whose normalized title matches
// exactly for an artist.
func (s *Store) FindByNormalizedTitle(ctx context.Context, artistID int64, normalizedTitle string) ([]*Candidate, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE artist_id = ? AND normalized_title = ? ORDER BY id ASC`,
		artistID, normalizedTitle,
	)
	if err != nil {
		return nil, fmt.Errorf("find candidates by title: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// ListByStatus returns candidates in any of the given statuses, oldest first.
func (s *Store) ListByStatus(ctx context.Context, statuses ...Status) ([]*Candidate, error) {
	ctx = ensureContext(ctx)
	if len(statuses) == 0 {
		rows, err := s.db.QueryContext(ctx, `SELECT `+candidateColumns+` FROM candidates ORDER BY created_at ASC, id ASC`)
		if err != nil {
			return nil, fmt.Errorf("list candidates: %w", err)
		}
		defer rows.Close()
		return collectCandidates(rows)
	}

	placeholders := makePlaceholders(len(statuses))
	args := make([]any, 0, len(statuses))
	for _, status := range statuses {
		args = append(args, string(status))
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE status IN (`+placeholders+`) ORDER BY created_at ASC, id ASC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates by status: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// ListByArtist returns all candidates for an artist, oldest first.
func (s *Store) ListByArtist(ctx context.Context, artistID int64) ([]*Candidate, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE artist_id = ? ORDER BY created_at ASC, id ASC`,
		artistID,
	)
	if err != nil {
		return nil, fmt.Errorf("list candidates by artist: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// ListWithLibraryPath returns candidates that record a placed library file.
func (s *Store) ListWithLibraryPath(ctx context.Context) ([]*Candidate, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+candidateColumns+` FROM candidates WHERE library_path IS NOT NULL AND library_path != '' ORDER BY id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list placed candidates: %w", err)
	}
	defer rows.Close()
	return collectCandidates(rows)
}

// CountByStatus returns the number of candidates per status.
func (s *Store) CountByStatus(ctx context.Context) (map[Status]int, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var (
			statusStr string
			count     int
		)
		if err := rows.Scan(&statusStr, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[Status(statusStr)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

// SetLibraryPath records where a candidate's file lives in the library.
func (s *Store) SetLibraryPath(ctx context.Context, id int64, path string) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE candidates SET library_path = ?, updated_at = ? WHERE id = ?`,
		nullableString(path), nowString(), id,
	); err != nil {
		return fmt.Errorf("set library path: %w", err)
	}
	return nil
}

func collectCandidates(rows *sql.Rows) ([]*Candidate, error) {
	var candidates []*Candidate
	for rows.Next() {
		candidate, err := scanCandidate(rows)
		if err != nil {
			return nil, fmt.Errorf("scan candidate: %w", err)
		}
		candidates = append(candidates, candidate)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}
	return candidates, nil
}
