package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

const artistColumns = "id, name, provider_id, monitored, include_kinds, exclude_kinds, last_discovered_at, created_at, updated_at"

const candidateColumns = "id, artist_id, title, normalized_title, kind, source_locator, status, checksum, library_path, released_at, duration_sec, attempt_count, last_error, last_attempt_at, created_at, updated_at"

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		id            int64
		name          string
		providerID    sql.NullString
		monitored     sql.NullInt64
		includeRaw    sql.NullString
		excludeRaw    sql.NullString
		discoveredRaw sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
	)

	if err := scanner.Scan(&id, &name, &providerID, &monitored, &includeRaw, &excludeRaw, &discoveredRaw, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	artist := &Artist{
		ID:         id,
		Name:       name,
		ProviderID: providerID.String,
	}
	if monitored.Valid {
		artist.Monitored = monitored.Int64 != 0
	}
	if includeRaw.Valid {
		artist.IncludeKinds = splitKinds(includeRaw.String)
	}
	if excludeRaw.Valid {
		artist.ExcludeKinds = splitKinds(excludeRaw.String)
	}
	if discoveredRaw.Valid {
		if discovered, err := parseTimeString(discoveredRaw.String); err == nil {
			artist.LastDiscoveredAt = &discovered
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artist.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		artist.UpdatedAt = updated
	}
	return artist, nil
}

func scanCandidate(scanner interface{ Scan(dest ...any) error }) (*Candidate, error) {
	var (
		id              int64
		artistID        int64
		title           string
		normalizedTitle string
		kind            sql.NullString
		sourceLocator   string
		statusStr       string
		checksum        sql.NullString
		libraryPath     sql.NullString
		releasedRaw     sql.NullString
		durationSec     sql.NullInt64
		attemptCount    sql.NullInt64
		lastError       sql.NullString
		lastAttemptRaw  sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&artistID,
		&title,
		&normalizedTitle,
		&kind,
		&sourceLocator,
		&statusStr,
		&checksum,
		&libraryPath,
		&releasedRaw,
		&durationSec,
		&attemptCount,
		&lastError,
		&lastAttemptRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	candidate := &Candidate{
		ID:              id,
		ArtistID:        artistID,
		Title:           title,
		NormalizedTitle: normalizedTitle,
		Kind:            kind.String,
		SourceLocator:   sourceLocator,
		Status:          Status(statusStr),
		Checksum:        checksum.String,
		LibraryPath:     libraryPath.String,
		DurationSec:     int(durationSec.Int64),
		AttemptCount:    int(attemptCount.Int64),
		LastError:       lastError.String,
	}
	if releasedRaw.Valid {
		if released, err := parseTimeString(releasedRaw.String); err == nil {
			candidate.ReleasedAt = &released
		}
	}
	if lastAttemptRaw.Valid {
		if attempted, err := parseTimeString(lastAttemptRaw.String); err == nil {
			candidate.LastAttemptAt = &attempted
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		candidate.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		candidate.UpdatedAt = updated
	}
	return candidate, nil
}

// joinKinds serializes a per-artist kind override. A nil slice stays NULL
// (inherit the global policy); an empty non-nil slice becomes the empty
// string, an explicit "none" override.
func joinKinds(kinds []string) any {
	if kinds == nil {
		return nil
	}
	cleaned := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		if kind = strings.ToLower(strings.TrimSpace(kind)); kind != "" {
			cleaned = append(cleaned, kind)
		}
	}
	return strings.Join(cleaned, ",")
}

func splitKinds(value string) []string {
	if value == "" {
		return []string{}
	}
	return strings.Split(value, ",")
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func nowString() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
