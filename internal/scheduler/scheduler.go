// Package scheduler drives periodic discovery: pull provider catalogs for
// monitored artists, deduplicate, apply policy, and feed the download queue.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"mvault/internal/catalog"
	"mvault/internal/dedup"
	"mvault/internal/download"
	"mvault/internal/logging"
	"mvault/internal/services"
	"mvault/internal/store"
	"mvault/internal/textutil"
)

// Storage is the slice of store the scheduler needs.
type Storage interface {
	ListArtists(ctx context.Context, monitoredOnly bool) ([]*store.Artist, error)
	GetArtist(ctx context.Context, id int64) (*store.Artist, error)
	TouchDiscovered(ctx context.Context, id int64, at time.Time) error
	InsertCandidate(ctx context.Context, nc store.NewCandidate) (*store.Candidate, bool, error)
	Transition(ctx context.Context, id int64, to store.Status, from ...store.Status) (bool, error)
	ListByStatus(ctx context.Context, statuses ...store.Status) ([]*store.Candidate, error)
}

// Config is the scheduler's runtime configuration. It is plain data handed
// over at construction and replaceable through UpdateConfig; the scheduler
// reads no ambient globals.
type Config struct {
	DiscoveryInterval time.Duration
	Policy            Policy
}

// ArtistError records a per-artist discovery failure. One artist failing
// never aborts the pass.
type ArtistError struct {
	ArtistID int64
	Artist   string
	Err      error
}

// Summary reports one discovery pass.
type Summary struct {
	RunID      string
	Artists    int
	Discovered int
	Wanted     int
	Skipped    int
	Duplicates int
	Enqueued   int
	Errors     []ArtistError
	StartedAt  time.Time
	Duration   time.Duration
}

type triggerRequest struct {
	artistID int64
}

// Scheduler runs discovery passes on a timer and on demand.
//
// Passes are single flight: a trigger that arrives while a pass is running
// is remembered (at most one) and honored immediately after.
type Scheduler struct {
	storage  Storage
	provider catalog.Provider
	index    *dedup.Index
	queue    *download.Queue
	bus      *download.Bus
	logger   *slog.Logger

	mu      sync.Mutex
	cfg     Config
	trigger chan triggerRequest
}

// New wires a scheduler. The bus may be nil.
func New(
	cfg Config,
	storage Storage,
	provider catalog.Provider,
	index *dedup.Index,
	queue *download.Queue,
	bus *download.Bus,
	logger *slog.Logger,
) *Scheduler {
	if cfg.DiscoveryInterval <= 0 {
		cfg.DiscoveryInterval = time.Hour
	}
	return &Scheduler{
		storage:  storage,
		provider: provider,
		index:    index,
		queue:    queue,
		bus:      bus,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		cfg:      cfg,
		trigger:  make(chan triggerRequest, 1),
	}
}

// UpdateConfig swaps the runtime configuration; the next pass uses it.
func (s *Scheduler) UpdateConfig(cfg Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cfg.DiscoveryInterval > 0 {
		s.cfg.DiscoveryInterval = cfg.DiscoveryInterval
	}
	s.cfg.Policy = cfg.Policy
}

func (s *Scheduler) config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg
}

// Trigger requests a discovery pass outside the schedule. artistID restricts
// the pass to one artist; zero means all monitored artists. A trigger during
// a running pass is coalesced into a single follow-up run.
func (s *Scheduler) Trigger(artistID int64) {
	select {
	case s.trigger <- triggerRequest{artistID: artistID}:
	default:
		// A follow-up run is already pending.
	}
}

// Run blocks, executing passes until the context is done.
func (s *Scheduler) Run(ctx context.Context) {
	interval := s.config().DiscoveryInterval
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// First pass immediately so a fresh daemon does not idle a full interval.
	s.runPass(ctx, 0)

	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.trigger:
			s.runPass(ctx, req.artistID)
		case <-ticker.C:
			s.runPass(ctx, 0)
			if next := s.config().DiscoveryInterval; next != interval {
				interval = next
				ticker.Reset(interval)
			}
		}
	}
}

// RunOnce executes a single discovery pass and returns its summary. Used by
// the one-shot CLI command and by Run.
func (s *Scheduler) RunOnce(ctx context.Context, artistID int64) (Summary, error) {
	return s.discover(ctx, artistID)
}

func (s *Scheduler) runPass(ctx context.Context, artistID int64) {
	summary, err := s.discover(ctx, artistID)
	if err != nil {
		s.logger.Error("discovery pass failed", logging.Error(err))
		return
	}
	s.logger.Info(
		"discovery pass completed",
		logging.String(logging.FieldCorrelationID, summary.RunID),
		logging.Int("artists", summary.Artists),
		logging.Int("discovered", summary.Discovered),
		logging.Int("wanted", summary.Wanted),
		logging.Int("skipped", summary.Skipped),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("enqueued", summary.Enqueued),
		logging.Int("errors", len(summary.Errors)),
		logging.Duration("duration", summary.Duration),
	)
	for _, artistErr := range summary.Errors {
		s.logger.Warn(
			"artist discovery failed",
			logging.Int64(logging.FieldArtistID, artistErr.ArtistID),
			logging.String("artist", artistErr.Artist),
			logging.Error(artistErr.Err),
		)
	}
}

func (s *Scheduler) discover(ctx context.Context, artistID int64) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString(), StartedAt: started}
	ctx = services.WithRequestID(ctx, summary.RunID)
	cfg := s.config()

	artists, err := s.targetArtists(ctx, artistID)
	if err != nil {
		return summary, err
	}
	summary.Artists = len(artists)

	for _, artist := range artists {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		if err := s.discoverArtist(ctx, artist, cfg.Policy, &summary); err != nil {
			summary.Errors = append(summary.Errors, ArtistError{ArtistID: artist.ID, Artist: artist.Name, Err: err})
		}
	}

	enqueued, err := s.enqueueWanted(ctx)
	if err != nil {
		return summary, err
	}
	summary.Enqueued = enqueued
	summary.Duration = time.Since(started)
	return summary, nil
}

func (s *Scheduler) targetArtists(ctx context.Context, artistID int64) ([]*store.Artist, error) {
	if artistID > 0 {
		artist, err := s.storage.GetArtist(ctx, artistID)
		if err != nil {
			return nil, fmt.Errorf("load artist %d: %w", artistID, err)
		}
		return []*store.Artist{artist}, nil
	}
	artists, err := s.storage.ListArtists(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("list monitored artists: %w", err)
	}
	return artists, nil
}

func (s *Scheduler) discoverArtist(ctx context.Context, artist *store.Artist, policy Policy, summary *Summary) error {
	ctx = services.WithArtistID(ctx, artist.ID)
	logger := logging.WithContext(ctx, s.logger)
	policy = policy.ForArtist(artist.IncludeKinds, artist.ExcludeKinds)

	candidates, err := s.provider.ListCandidates(ctx, catalog.Artist{
		ID:         artist.ID,
		Name:       artist.Name,
		ProviderID: artist.ProviderID,
	})
	if err != nil {
		return fmt.Errorf("provider listing: %w", err)
	}

	for _, remote := range candidates {
		match, suggestions, err := s.index.FindExisting(ctx, artist.ID, remote.SourceLocator, remote.Title)
		if err != nil {
			return fmt.Errorf("dedup lookup for %q: %w", remote.Title, err)
		}
		if match != nil {
			summary.Duplicates++
			continue
		}
		for _, suggestion := range suggestions {
			logger.Info(
				"possible duplicate needs review",
				logging.String("title", remote.Title),
				logging.Int64("existing_candidate", suggestion.Candidate.ID),
				logging.Float64("similarity", suggestion.Similarity),
			)
		}

		status, kind := policy.Decide(remote.Kind, remote.Title)
		var releasedAt *time.Time
		if !remote.ReleasedAt.IsZero() {
			released := remote.ReleasedAt
			releasedAt = &released
		}
		candidate, created, err := s.storage.InsertCandidate(ctx, store.NewCandidate{
			ArtistID:        artist.ID,
			Title:           remote.Title,
			NormalizedTitle: textutil.NormalizeTitle(remote.Title),
			Kind:            kind,
			SourceLocator:   remote.SourceLocator,
			Status:          store.StatusDiscovered,
			Checksum:        remote.Checksum,
			ReleasedAt:      releasedAt,
			DurationSec:     remote.DurationSec,
		})
		if err != nil {
			return fmt.Errorf("insert candidate %q: %w", remote.Title, err)
		}
		if !created {
			// Locator landed between the dedup check and the insert.
			summary.Duplicates++
			continue
		}
		summary.Discovered++

		if ok, err := s.storage.Transition(ctx, candidate.ID, status, store.StatusDiscovered); err != nil {
			return fmt.Errorf("apply policy to %q: %w", remote.Title, err)
		} else if ok {
			s.publish(candidate.ID, store.StatusDiscovered, status, "")
			if status == store.StatusWanted {
				summary.Wanted++
			} else {
				summary.Skipped++
			}
		}
	}

	if err := s.storage.TouchDiscovered(ctx, artist.ID, time.Now()); err != nil {
		logger.Warn("failed to record discovery time", logging.Error(err))
	}
	return nil
}

// enqueueWanted hands every wanted candidate to the download queue, oldest
// first. Candidates the queue still tracks are left alone. With no queue
// attached (one-shot discovery) the wanted rows stay put for the daemon.
func (s *Scheduler) enqueueWanted(ctx context.Context) (int, error) {
	if s.queue == nil {
		return 0, nil
	}
	wanted, err := s.storage.ListByStatus(ctx, store.StatusWanted)
	if err != nil {
		return 0, fmt.Errorf("list wanted candidates: %w", err)
	}

	enqueued := 0
	for _, candidate := range wanted {
		if s.queue.Contains(candidate.ID) {
			continue
		}
		ok, err := s.storage.Transition(ctx, candidate.ID, store.StatusQueued, store.StatusWanted)
		if err != nil {
			return enqueued, fmt.Errorf("enqueue candidate %d: %w", candidate.ID, err)
		}
		if !ok {
			continue
		}
		if !s.queue.Enqueue(candidate.ID, 0) {
			// Queue closed or raced; put the row back so nothing strands.
			if _, revertErr := s.storage.Transition(ctx, candidate.ID, store.StatusWanted, store.StatusQueued); revertErr != nil {
				s.logger.Error("failed to revert orphaned enqueue", logging.Int64(logging.FieldCandidateID, candidate.ID), logging.Error(revertErr))
			}
			continue
		}
		s.publish(candidate.ID, store.StatusWanted, store.StatusQueued, "")
		enqueued++
	}
	return enqueued, nil
}

func (s *Scheduler) publish(id int64, from, to store.Status, message string) {
	if s.bus == nil {
		return
	}
	s.bus.Publish(download.Event{CandidateID: id, From: from, To: to, Message: message})
}
