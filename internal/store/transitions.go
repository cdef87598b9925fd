package store

import (
	"context"
	"fmt"
	"time"
)

// Transition moves a candidate from one of the expected statuses to the
// target status. It returns true when the row was updated, false when the
// candidate was no longer in an expected status (a concurrent writer won).
func (s *Store) Transition(ctx context.Context, id int64, to Status, from ...Status) (bool, error) {
	if !to.Valid() {
		return false, fmt.Errorf("invalid target status %q", to)
	}
	if len(from) == 0 {
		return false, fmt.Errorf("transition to %s requires at least one expected status", to)
	}
	for _, f := range from {
		if !CanTransition(f, to) {
			return false, fmt.Errorf("no edge %s -> %s", f, to)
		}
	}

	placeholders := makePlaceholders(len(from))
	args := make([]any, 0, len(from)+3)
	args = append(args, string(to), nowString(), id)
	for _, f := range from {
		args = append(args, string(f))
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates SET status = ?, updated_at = ? WHERE id = ? AND status IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return false, fmt.Errorf("transition candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("transition rows: %w", err)
	}
	return affected > 0, nil
}

// ClaimForDownload atomically moves a queued candidate to downloading and
// bumps its attempt counter. Only one claimer can win.
func (s *Store) ClaimForDownload(ctx context.Context, id int64) (bool, error) {
	now := nowString()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, attempt_count = attempt_count + 1, last_attempt_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusDownloading), now, now, id, string(StatusQueued),
	)
	if err != nil {
		return false, fmt.Errorf("claim candidate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim rows: %w", err)
	}
	return affected > 0, nil
}

// MarkOrganized completes a download: downloading -> organized with the final
// library path recorded and any stale error cleared.
func (s *Store) MarkOrganized(ctx context.Context, id int64, libraryPath string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, library_path = ?, last_error = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusOrganized), libraryPath, nowString(), id, string(StatusDownloading),
	)
	if err != nil {
		return false, fmt.Errorf("mark organized: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark organized rows: %w", err)
	}
	return affected > 0, nil
}

// RecordFailure moves a downloading candidate to the given failure status
// (wanted for retryable failures, failed for terminal ones) and persists the
// error message.
func (s *Store) RecordFailure(ctx context.Context, id int64, to Status, message string) (bool, error) {
	if to != StatusWanted && to != StatusFailed {
		return false, fmt.Errorf("failure status must be wanted or failed, got %q", to)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, last_error = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(to), nullableString(message), nowString(), id, string(StatusDownloading),
	)
	if err != nil {
		return false, fmt.Errorf("record failure: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record failure rows: %w", err)
	}
	return affected > 0, nil
}

// MarkImported satisfies a wanted or failed candidate with a file already on
// disk, recording the path without a download.
func (s *Store) MarkImported(ctx context.Context, id int64, libraryPath string) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, library_path = ?, last_error = NULL, updated_at = ?
         WHERE id = ? AND status IN (?, ?)`,
		string(StatusOrganized), libraryPath, nowString(), id,
		string(StatusWanted), string(StatusFailed),
	)
	if err != nil {
		return false, fmt.Errorf("mark imported: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark imported rows: %w", err)
	}
	return affected > 0, nil
}

// ResetInFlight returns candidates stranded by a crash (queued or
// downloading) to wanted so the next enqueue pass picks them up.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, updated_at = ?
         WHERE status IN (?, ?)`,
		string(StatusWanted),
		nowString(),
		string(StatusQueued),
		string(StatusDownloading),
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight candidates: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseAttempt hands back the attempt slot consumed by ClaimForDownload,
// used when a failure was environmental rather than the source's fault.
func (s *Store) ReleaseAttempt(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE candidates SET attempt_count = MAX(attempt_count - 1, 0), updated_at = ? WHERE id = ?`,
		nowString(), id,
	); err != nil {
		return fmt.Errorf("release attempt: %w", err)
	}
	return nil
}

// ResetAttempts zeroes the attempt counter, used when an operator requeues a
// failed candidate.
func (s *Store) ResetAttempts(ctx context.Context, id int64) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE candidates SET attempt_count = 0, last_error = NULL, updated_at = ? WHERE id = ?`,
		nowString(), id,
	); err != nil {
		return fmt.Errorf("reset attempts: %w", err)
	}
	return nil
}

// DemoteMissing moves an organized candidate whose library file vanished back
// to wanted and clears the recorded path.
func (s *Store) DemoteMissing(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE candidates
         SET status = ?, library_path = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(StatusWanted), nowString(), id, string(StatusOrganized),
	)
	if err != nil {
		return false, fmt.Errorf("demote missing: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("demote missing rows: %w", err)
	}
	return affected > 0, nil
}

// TouchAttempt stamps the last attempt time without changing status.
func (s *Store) TouchAttempt(ctx context.Context, id int64, at time.Time) error {
	if err := s.execWithoutResultRetry(
		ctx,
		`UPDATE candidates SET last_attempt_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC().Format(time.RFC3339Nano), nowString(), id,
	); err != nil {
		return fmt.Errorf("touch attempt: %w", err)
	}
	return nil
}
