package download

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"mvault/internal/fetch"
	"mvault/internal/logging"
	"mvault/internal/organize"
	"mvault/internal/services"
	"mvault/internal/store"
)

// Storage is the slice of store the pool needs.
type Storage interface {
	GetCandidate(ctx context.Context, id int64) (*store.Candidate, error)
	GetArtist(ctx context.Context, id int64) (*store.Artist, error)
	ClaimForDownload(ctx context.Context, id int64) (bool, error)
	MarkOrganized(ctx context.Context, id int64, libraryPath string) (bool, error)
	RecordFailure(ctx context.Context, id int64, to store.Status, message string) (bool, error)
	ReleaseAttempt(ctx context.Context, id int64) error
	Transition(ctx context.Context, id int64, to store.Status, from ...store.Status) (bool, error)
}

// delayed retries rank below fresh scheduler work (and far below operator
// triggers), so an old retry never starves newly discovered candidates
const retryPriority = -1

// PoolConfig sizes the pool and its retry policy.
type PoolConfig struct {
	Workers       int
	MaxAttempts   int
	RetryBase     time.Duration
	RetryMax      time.Duration
	JobTimeout    time.Duration
	QualityFormat string
}

// Pool consumes the queue with a fixed set of workers.
type Pool struct {
	cfg      PoolConfig
	storage  Storage
	queue    *Queue
	fetcher  fetch.Fetcher
	verifier *organize.Verifier
	planner  organize.Planner
	placer   *organize.Placer
	bus      *Bus
	logger   *slog.Logger
	wg       sync.WaitGroup
}

// NewPool wires a pool. The bus may be nil when nobody consumes events.
func NewPool(
	cfg PoolConfig,
	storage Storage,
	queue *Queue,
	fetcher fetch.Fetcher,
	verifier *organize.Verifier,
	placer *organize.Placer,
	bus *Bus,
	logger *slog.Logger,
) *Pool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Pool{
		cfg:      cfg,
		storage:  storage,
		queue:    queue,
		fetcher:  fetcher,
		verifier: verifier,
		placer:   placer,
		bus:      bus,
		logger:   logging.NewComponentLogger(logger, "download"),
	}
}

// Start launches the workers. They exit when the context is done or the
// queue closes.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go func(worker int) {
			defer p.wg.Done()
			logger := p.logger.With(logging.Int("worker", worker))
			for {
				id, ok := p.queue.Dequeue(ctx)
				if !ok {
					return
				}
				p.process(ctx, id, logger)
			}
		}(i)
	}
}

// Wait blocks until every worker has exited.
func (p *Pool) Wait() {
	p.wg.Wait()
}

func (p *Pool) process(ctx context.Context, id int64, logger *slog.Logger) {
	jobID := uuid.NewString()
	ctx = services.WithCandidateID(ctx, id)
	ctx = services.WithRequestID(ctx, jobID)
	logger = logging.WithContext(ctx, logger)

	claimed, err := p.storage.ClaimForDownload(ctx, id)
	if err != nil {
		logger.Error("claim failed", logging.Error(err))
		p.queue.RequeueAfter(id, retryPriority, p.cfg.RetryBase)
		return
	}
	if !claimed {
		// Status changed under us (operator skip, another instance).
		logger.Debug("candidate no longer queued, dropping job")
		p.queue.Resolve(id)
		return
	}

	candidate, err := p.storage.GetCandidate(ctx, id)
	if err != nil {
		logger.Error("load candidate failed", logging.Error(err))
		p.abandon(id, "candidate row unavailable after claim")
		return
	}
	p.publish(candidate.ID, store.StatusQueued, store.StatusDownloading, "")

	artist, err := p.storage.GetArtist(ctx, candidate.ArtistID)
	if err != nil {
		p.fail(ctx, candidate, services.Wrap(services.ErrValidation, "download", "load artist", "Owning artist row is missing", err), logger)
		return
	}

	logger.Info(
		"starting download",
		logging.String("artist", artist.Name),
		logging.String("title", candidate.Title),
		logging.Int("attempt", candidate.AttemptCount),
	)

	stagingDir, err := p.placer.StagingDir(jobID)
	if err != nil {
		p.fail(ctx, candidate, err, logger)
		return
	}
	defer p.placer.CleanupStaging(jobID)

	jobCtx := ctx
	if p.cfg.JobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(ctx, p.cfg.JobTimeout)
		defer cancel()
	}

	result, err := p.fetcher.Fetch(jobCtx, fetch.Request{
		SourceLocator: candidate.SourceLocator,
		TargetDir:     stagingDir,
		QualityFormat: p.cfg.QualityFormat,
	})
	if err != nil {
		if ctx.Err() != nil {
			p.abandon(id, "interrupted by shutdown")
			return
		}
		p.fail(ctx, candidate, err, logger)
		return
	}

	if err := p.verifier.Verify(result.FilePath, candidate.Checksum); err != nil {
		p.fail(ctx, candidate, err, logger)
		return
	}

	plan := p.planner.Plan(artist.Name, candidate.Title, filepath.Ext(result.FilePath))
	finalPath, err := p.placer.Place(result.FilePath, plan)
	if err != nil {
		p.fail(ctx, candidate, err, logger)
		return
	}

	ok, err := p.storage.MarkOrganized(ctx, id, finalPath)
	if err != nil {
		logger.Error("commit failed after placement", logging.Error(err), logging.String("final_path", finalPath))
		p.queue.Resolve(id)
		return
	}
	if !ok {
		logger.Warn("candidate left downloading before commit", logging.String("final_path", finalPath))
		p.queue.Resolve(id)
		return
	}

	p.queue.Resolve(id)
	p.publish(id, store.StatusDownloading, store.StatusOrganized, "")
	logger.Info(
		"download organized",
		logging.String("final_path", finalPath),
		logging.Int64("size_bytes", result.SizeBytes),
	)
}

// fail classifies an error, persists it, and either schedules a delayed
// retry or parks the candidate as failed. Placement failures are the
// exception: the library filesystem is broken, not the source, so the
// candidate goes back to wanted with its attempt slot returned instead of
// marching toward failed.
func (p *Pool) fail(ctx context.Context, candidate *store.Candidate, failure error, logger *slog.Logger) {
	retryable := classify(failure)
	message := services.Summary(failure)
	attempt := candidate.AttemptCount

	if services.IsPlacement(failure) {
		if ok, err := p.storage.RecordFailure(ctx, candidate.ID, store.StatusWanted, message); err != nil || !ok {
			logger.Error("failed to record placement failure", logging.Error(err))
		} else {
			if err := p.storage.ReleaseAttempt(ctx, candidate.ID); err != nil {
				logger.Warn("failed to return attempt slot", logging.Error(err))
			}
			p.publish(candidate.ID, store.StatusDownloading, store.StatusWanted, message)
		}
		p.queue.Resolve(candidate.ID)
		logger.Error(
			"placement failed, candidate reverted to wanted",
			logging.String("reason", message),
		)
		return
	}

	if retryable && attempt < p.cfg.MaxAttempts {
		if ok, err := p.storage.RecordFailure(ctx, candidate.ID, store.StatusWanted, message); err != nil || !ok {
			logger.Error("failed to record retryable failure", logging.Error(err))
			p.queue.Resolve(candidate.ID)
			return
		}
		p.publish(candidate.ID, store.StatusDownloading, store.StatusWanted, message)

		requeued, err := p.storage.Transition(ctx, candidate.ID, store.StatusQueued, store.StatusWanted)
		if err != nil || !requeued {
			// Operator action in the gap; the next enqueue pass owns it now.
			logger.Warn("retry re-enqueue lost the race", logging.Error(err))
			p.queue.Resolve(candidate.ID)
			return
		}
		p.publish(candidate.ID, store.StatusWanted, store.StatusQueued, "")

		delay := Backoff(p.cfg.RetryBase, p.cfg.RetryMax, attempt)
		p.queue.RequeueAfter(candidate.ID, retryPriority, delay)
		logger.Warn(
			"download failed, retry scheduled",
			logging.String("reason", message),
			logging.Int("attempt", attempt),
			logging.Duration("delay", delay),
		)
		return
	}

	if ok, err := p.storage.RecordFailure(ctx, candidate.ID, store.StatusFailed, message); err != nil || !ok {
		logger.Error("failed to record terminal failure", logging.Error(err))
	} else {
		p.publish(candidate.ID, store.StatusDownloading, store.StatusFailed, message)
	}
	p.queue.Resolve(candidate.ID)
	logger.Error(
		"download failed terminally",
		logging.String("reason", message),
		logging.Int("attempt", attempt),
		logging.Bool("retryable", retryable),
	)
}

// abandon returns a claimed candidate to wanted without consuming a retry
// slot, used when shutdown interrupts the job.
func (p *Pool) abandon(id int64, message string) {
	// Shutdown context may already be canceled; use a detached one for the
	// final write.
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if ok, err := p.storage.RecordFailure(writeCtx, id, store.StatusWanted, message); err != nil {
		p.logger.Error("failed to release candidate", logging.Int64(logging.FieldCandidateID, id), logging.Error(err))
	} else if ok {
		p.publish(id, store.StatusDownloading, store.StatusWanted, message)
	}
	p.queue.Resolve(id)
}

func (p *Pool) publish(id int64, from, to store.Status, message string) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(Event{CandidateID: id, From: from, To: to, Message: message})
}

func classify(err error) bool {
	if err == nil {
		return false
	}
	var fetchErr *fetch.Error
	if errors.As(err, &fetchErr) {
		return fetchErr.Retryable
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return services.IsRetryable(err)
}
