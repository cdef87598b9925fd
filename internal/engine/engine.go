// Package engine wires the store, queue, worker pool, discovery scheduler,
// and library scanner into one runnable pipeline and exposes the operator
// control surface on top of it.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"mvault/internal/catalog"
	"mvault/internal/config"
	"mvault/internal/dedup"
	"mvault/internal/download"
	"mvault/internal/fetch"
	"mvault/internal/logging"
	"mvault/internal/organize"
	"mvault/internal/scanner"
	"mvault/internal/scheduler"
	"mvault/internal/store"
)

// operator-initiated enqueues jump ahead of scheduler traffic
const operatorPriority = 10

// Engine owns the acquisition pipeline.
type Engine struct {
	cfg       *config.Config
	store     *store.Store
	queue     *download.Queue
	bus       *download.Bus
	pool      *download.Pool
	scheduler *scheduler.Scheduler
	scanner   *scanner.Scanner
	logger    *slog.Logger

	scanTrigger chan struct{}
}

// StatusReport is a point-in-time snapshot for the status command.
type StatusReport struct {
	Counts     map[store.Status]int
	QueueDepth int
	Artists    []*store.Artist
}

// New assembles an engine from its externally supplied edges: the opened
// store, the catalog provider, and the fetcher.
func New(
	cfg *config.Config,
	st *store.Store,
	provider catalog.Provider,
	fetcher fetch.Fetcher,
	logger *slog.Logger,
) *Engine {
	queue := download.NewQueue()
	bus := download.NewBus(256)
	index := dedup.NewIndex(st, cfg.Policy.FuzzyThreshold)

	pool := download.NewPool(
		download.PoolConfig{
			Workers:       cfg.Download.Workers,
			MaxAttempts:   cfg.Download.MaxAttempts,
			RetryBase:     cfg.RetryBase(),
			RetryMax:      cfg.RetryMax(),
			JobTimeout:    cfg.JobTimeout(),
			QualityFormat: cfg.Fetcher.QualityFormat,
		},
		st,
		queue,
		fetcher,
		organize.NewVerifier(cfg.Policy.AllowedExtensions),
		organize.NewPlacer(cfg.Paths.LibraryDir, cfg.Paths.StagingDir, logger),
		bus,
		logger,
	)

	sched := scheduler.New(
		scheduler.Config{
			DiscoveryInterval: cfg.DiscoveryInterval(),
			Policy: scheduler.Policy{
				IncludeKinds: cfg.Policy.IncludeKinds,
				ExcludeKinds: cfg.Policy.ExcludeKinds,
				KindKeywords: cfg.Policy.KindKeywords,
			},
		},
		st,
		provider,
		index,
		queue,
		bus,
		logger,
	)

	scan := scanner.New(st, index, cfg.Paths.LibraryDir, cfg.Policy.AllowedExtensions, bus, logger)

	return &Engine{
		cfg:         cfg,
		store:       st,
		queue:       queue,
		bus:         bus,
		pool:        pool,
		scheduler:   sched,
		scanner:     scan,
		logger:      logging.NewComponentLogger(logger, "engine"),
		scanTrigger: make(chan struct{}, 1),
	}
}

// Run executes the pipeline until the context is canceled, then drains the
// workers. Crash recovery happens before the first enqueue pass: stranded
// queued and downloading rows return to wanted, and the library is
// reconciled so satisfied candidates are not downloaded again.
func (e *Engine) Run(ctx context.Context) error {
	reset, err := e.store.ResetInFlight(ctx)
	if err != nil {
		return fmt.Errorf("recover in-flight candidates: %w", err)
	}
	if reset > 0 {
		e.logger.Info("recovered in-flight candidates", logging.Int64("count", reset))
	}

	if summary, err := e.scanner.Scan(ctx); err != nil {
		e.logger.Error("startup library scan failed", logging.Error(err))
	} else {
		e.logScan(summary)
	}

	e.pool.Start(ctx)

	schedDone := make(chan struct{})
	go func() {
		defer close(schedDone)
		e.scheduler.Run(ctx)
	}()

	scanDone := make(chan struct{})
	go func() {
		defer close(scanDone)
		e.scanLoop(ctx)
	}()

	<-ctx.Done()
	e.queue.Close()
	e.pool.Wait()
	<-schedDone
	<-scanDone
	e.bus.Close()
	e.logger.Info("pipeline stopped")
	return nil
}

func (e *Engine) scanLoop(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ScanInterval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-e.scanTrigger:
		case <-ticker.C:
		}
		summary, err := e.scanner.Scan(ctx)
		if err != nil {
			e.logger.Error("library scan failed", logging.Error(err))
			continue
		}
		e.logScan(summary)
	}
}

func (e *Engine) logScan(summary scanner.Summary) {
	e.logger.Info(
		"library scan complete",
		logging.Int("files", summary.FilesSeen),
		logging.Int("matched", summary.Matched),
		logging.Int("satisfied", summary.Satisfied),
		logging.Int("imported", summary.Created),
		logging.Int("demoted", summary.Demoted),
		logging.Int("ambiguous", summary.Ambiguous),
	)
}

// TriggerDiscovery requests an out-of-schedule discovery pass. artistID
// restricts the pass to one artist; zero means all monitored artists.
func (e *Engine) TriggerDiscovery(artistID int64) {
	e.scheduler.Trigger(artistID)
}

// TriggerScan requests an out-of-schedule library scan.
func (e *Engine) TriggerScan() {
	select {
	case e.scanTrigger <- struct{}{}:
	default:
	}
}

// RunDiscovery executes a single synchronous discovery pass, for the
// one-shot CLI command.
func (e *Engine) RunDiscovery(ctx context.Context, artistID int64) (scheduler.Summary, error) {
	return e.scheduler.RunOnce(ctx, artistID)
}

// RunScan executes a single synchronous library scan.
func (e *Engine) RunScan(ctx context.Context) (scanner.Summary, error) {
	return e.scanner.Scan(ctx)
}

// Requeue returns a failed or skipped candidate to the pipeline with a fresh
// attempt budget and hands it straight to the queue.
func (e *Engine) Requeue(ctx context.Context, id int64) error {
	ok, err := e.store.Transition(ctx, id, store.StatusWanted, store.StatusFailed, store.StatusSkipped)
	if err != nil {
		return err
	}
	if !ok {
		current, err := e.store.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("candidate %d is %s, requeue needs failed or skipped", id, current.Status)
	}
	if err := e.store.ResetAttempts(ctx, id); err != nil {
		return err
	}
	return e.enqueueNow(ctx, id)
}

// Skip removes a candidate from consideration. Any resting state can be
// skipped; candidates the pipeline currently owns (queued, downloading)
// cannot.
func (e *Engine) Skip(ctx context.Context, id int64) error {
	ok, err := e.store.Transition(ctx, id, store.StatusSkipped,
		store.StatusDiscovered, store.StatusWanted, store.StatusFailed, store.StatusOrganized)
	if err != nil {
		return err
	}
	if !ok {
		current, err := e.store.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("candidate %d is %s, cannot skip while a download is in flight", id, current.Status)
	}
	return nil
}

// Unskip restores a skipped candidate to wanted and enqueues it.
func (e *Engine) Unskip(ctx context.Context, id int64) error {
	ok, err := e.store.Transition(ctx, id, store.StatusWanted, store.StatusSkipped)
	if err != nil {
		return err
	}
	if !ok {
		current, err := e.store.GetCandidate(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("candidate %d is %s, unskip needs skipped", id, current.Status)
	}
	return e.enqueueNow(ctx, id)
}

// enqueueNow moves a wanted candidate into the queue immediately instead of
// waiting for the next scheduler pass.
func (e *Engine) enqueueNow(ctx context.Context, id int64) error {
	if e.queue.Contains(id) {
		return nil
	}
	ok, err := e.store.Transition(ctx, id, store.StatusQueued, store.StatusWanted)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if !e.queue.Enqueue(id, operatorPriority) {
		// Queue closed or raced; leave the row for the next pass.
		if _, err := e.store.Transition(ctx, id, store.StatusWanted, store.StatusQueued); err != nil {
			return err
		}
	}
	return nil
}

// Status reports candidate counts, queue depth, and the artist roster.
func (e *Engine) Status(ctx context.Context) (StatusReport, error) {
	counts, err := e.store.CountByStatus(ctx)
	if err != nil {
		return StatusReport{}, err
	}
	artists, err := e.store.ListArtists(ctx, false)
	if err != nil {
		return StatusReport{}, err
	}
	return StatusReport{Counts: counts, QueueDepth: e.queue.Len(), Artists: artists}, nil
}

// Events exposes the status-change stream for followers.
func (e *Engine) Events() <-chan download.Event {
	return e.bus.Events()
}
