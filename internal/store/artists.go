package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound reports a lookup that matched no row.
var ErrNotFound = errors.New("store: not found")

// AddArtist inserts a monitored artist and returns the stored row. Adding an
// artist whose name already exists (case-insensitive) returns the existing row.
func (s *Store) AddArtist(ctx context.Context, name, providerID string) (*Artist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("artist name must not be empty")
	}

	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO artists (name, provider_id, monitored, created_at, updated_at)
         VALUES (?, ?, 1, ?, ?)
         ON CONFLICT DO NOTHING`,
		name, nullableString(providerID), now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert artist: %w", err)
	}

	if inserted, err := res.RowsAffected(); err == nil && inserted > 0 {
		if id, err := res.LastInsertId(); err == nil {
			return s.GetArtist(ctx, id)
		}
	}
	return s.GetArtistByName(ctx, name)
}

// GetArtist fetches an artist by id.
func (s *Store) GetArtist(ctx context.Context, id int64) (*Artist, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+artistColumns+` FROM artists WHERE id = ?`, id)
	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return artist, nil
}

// GetArtistByName fetches an artist by case-insensitive name.
func (s *Store) GetArtistByName(ctx context.Context, name string) (*Artist, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+artistColumns+` FROM artists WHERE name = ? COLLATE NOCASE`,
		strings.TrimSpace(name),
	)
	artist, err := scanArtist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get artist by name: %w", err)
	}
	return artist, nil
}

// ListArtists returns all artists ordered by name. When monitoredOnly is set,
// unmonitored artists are excluded.
func (s *Store) ListArtists(ctx context.Context, monitoredOnly bool) ([]*Artist, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + artistColumns + ` FROM artists`
	if monitoredOnly {
		query += ` WHERE monitored = 1`
	}
	query += ` ORDER BY name COLLATE NOCASE ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	defer rows.Close()

	var artists []*Artist
	for rows.Next() {
		artist, err := scanArtist(rows)
		if err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		artists = append(artists, artist)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate artists: %w", err)
	}
	return artists, nil
}

// SetMonitored toggles discovery for an artist.
func (s *Store) SetMonitored(ctx context.Context, id int64, monitored bool) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artists SET monitored = ?, updated_at = ? WHERE id = ?`,
		boolToInt(monitored), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("set monitored: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set monitored rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// SetArtistPolicy stores per-artist kind overrides. A nil slice clears that
// override back to the global policy; a non-nil slice (including an empty
// one) replaces it.
func (s *Store) SetArtistPolicy(ctx context.Context, id int64, includeKinds, excludeKinds []string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE artists SET include_kinds = ?, exclude_kinds = ?, updated_at = ? WHERE id = ?`,
		joinKinds(includeKinds), joinKinds(excludeKinds), nowString(), id,
	)
	if err != nil {
		return fmt.Errorf("set artist policy: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set artist policy rows: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchDiscovered records a completed discovery pass for an artist.
func (s *Store) TouchDiscovered(ctx context.Context, id int64, at time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE artists SET last_discovered_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), nowString(), id,
	); err != nil {
		return fmt.Errorf("touch discovered: %w", err)
	}
	return nil
}
