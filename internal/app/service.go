// Package service wires winner ingestion, score recomputation and analytics
// into the operations exposed by the HTTP API and the CLI.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	eventqueue "github.com/okian/podium/internal/adapters/mq/queue"
	workerpool "github.com/okian/podium/internal/adapters/mq/worker"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/analytics"
	"github.com/okian/podium/internal/domain/dedupe"
	"github.com/okian/podium/internal/domain/matcher"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/results"
	"github.com/okian/podium/internal/domain/scoring"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

// Defaults applied by New.
const (
	DefaultQueueSize         = 1024
	DefaultDedupeSize        = 10000
	DefaultRecomputeTimeout  = 30 * time.Second
	DefaultMaxAttempts       = 3
	DefaultCacheTTL          = 30 * time.Second
	DefaultStandingsLimit    = 50
	DefaultMaxStandingsLimit = 500
)

// IngestReport describes what happened to one winner candidate.
type IngestReport struct {
	Candidate  model.WinnerCandidate `json:"candidate"`
	Resolution matcher.Resolution    `json:"resolution"`
	Outcome    results.Outcome       `json:"outcome,omitempty"`
	Result     *model.Result         `json:"result,omitempty"`
	// Recomputed is the number of score rows rebuilt inline.
	Recomputed int `json:"recomputed"`
	// Scheduled is set when recomputation was handed to the queue.
	Scheduled bool   `json:"scheduled"`
	Error     string `json:"error,omitempty"`
}

// Service implements the API dependencies for the prediction engine.
type Service struct {
	mu sync.RWMutex

	// Core components
	store    repository.Store
	matcher  *matcher.Matcher
	recorder *results.Recorder
	engine   *scoring.Engine
	analyzer *analytics.Analyzer
	cache    *snapshotCache

	// Recompute pipeline, built by Start
	deduper    dedupe.Deduper
	jobQueue   *eventqueue.InMemoryQueue
	workerPool *workerpool.Pool

	// Configuration
	mode              IngestMode
	workerCount       int
	queueSize         int
	dedupeSize        int
	recomputeTimeout  time.Duration
	recomputeInterval time.Duration
	maxAttempts       int
	cacheTTL          time.Duration
	multiplier        int
	thresholds        analytics.Thresholds
	maxStandingsLimit int
	now               func() time.Time

	// State
	started bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	logger logger.Logger
}

// New constructs a Service. Read and ingest operations work right away;
// Start brings up the recompute queue, its workers and the periodic run.
func New(opts ...Option) *Service {
	s := &Service{
		mode:              IngestSync,
		workerCount:       runtime.NumCPU(),
		queueSize:         DefaultQueueSize,
		dedupeSize:        DefaultDedupeSize,
		recomputeTimeout:  DefaultRecomputeTimeout,
		maxAttempts:       DefaultMaxAttempts,
		cacheTTL:          DefaultCacheTTL,
		multiplier:        scoring.DefaultPowerPickMultiplier,
		thresholds:        analytics.DefaultThresholds(),
		maxStandingsLimit: DefaultMaxStandingsLimit,
		now:               time.Now,
		stopCh:            make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.store == nil {
		s.store = repository.NewMemStore(repository.WithLogger(s.logger.Named("repository")))
	}

	s.matcher = matcher.New(matcher.WithLogger(s.logger.Named("matcher")))
	s.recorder = results.NewRecorder(s.store,
		results.WithClock(s.now),
		results.WithLogger(s.logger.Named("results")),
	)
	s.engine = scoring.NewEngine(s.store,
		scoring.WithMultiplier(s.multiplier),
		scoring.WithClock(s.now),
		scoring.WithLogger(s.logger.Named("scoring")),
	)
	s.analyzer = analytics.NewAnalyzer(s.store,
		analytics.WithThresholds(s.thresholds),
		analytics.WithMultiplier(s.multiplier),
		analytics.WithClock(s.now),
		analytics.WithLogger(s.logger.Named("analytics")),
	)
	s.cache = newSnapshotCache(s.cacheTTL, s.now)
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start initializes and starts the recompute workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting podium service...")

	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.jobQueue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithDeduper(s.deduper),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.jobQueue, s,
		workerpool.WithLogger(s.logger.Named("worker")),
		workerpool.WithMaxAttempts(s.maxAttempts),
		workerpool.WithRetryable(IsRetryable),
		workerpool.WithJobTimeout(s.recomputeTimeout),
	)
	s.workerPool.Start(ctx)

	s.stopCh = make(chan struct{})
	if s.recomputeInterval > 0 {
		s.wg.Add(1)
		go s.periodicRecompute(ctx)
	}

	s.started = true
	s.logger.Info(ctx, "podium service started",
		logger.String("ingest_mode", string(s.mode)),
		logger.Int("workers", s.workerPool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Duration("recompute_interval", s.recomputeInterval),
	)
	return nil
}

// Stop drains the workers and stops the periodic run. The store stays open;
// its owner closes it.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	close(s.stopCh)
	pool := s.workerPool
	s.mu.Unlock()

	ctx := context.Background()
	s.logger.Info(ctx, "stopping podium service...")
	s.wg.Wait()
	if err := pool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	s.logger.Info(ctx, "podium service stopped")
}

// periodicRecompute schedules every known event on each tick so that
// scores converge even when a triggered job was lost.
func (s *Service) periodicRecompute(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.recomputeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stopCh:
			return
		case <-ticker.C:
			events, err := s.store.Events(ctx)
			if err != nil {
				s.logger.Warn(ctx, "periodic recompute: list events", logger.Error(err))
				continue
			}
			for _, eventID := range events {
				if err := s.ScheduleRecompute(ctx, eventID, "periodic"); err != nil && !errors.Is(err, ErrNotStarted) {
					s.logger.Warn(ctx, "periodic recompute: schedule",
						logger.String("event_id", eventID),
						logger.Error(err),
					)
				}
			}
		}
	}
}

// SaveCategory stores a catalog category.
func (s *Service) SaveCategory(ctx context.Context, c model.Category) error {
	if err := s.store.SaveCategory(ctx, c); err != nil {
		return err
	}
	s.cache.invalidate(c.EventID)
	return nil
}

// SaveBallot stores a ballot.
func (s *Service) SaveBallot(ctx context.Context, b model.Ballot) error {
	if err := s.store.SaveBallot(ctx, b); err != nil {
		return err
	}
	s.cache.invalidate(b.EventID)
	return nil
}

// MatchWinner resolves a candidate against the event's catalog without
// recording anything.
func (s *Service) MatchWinner(ctx context.Context, eventID string, c model.WinnerCandidate) (matcher.Resolution, error) {
	categories, err := s.categories(ctx, eventID)
	if err != nil {
		return matcher.Resolution{}, err
	}
	return s.matcher.Match(ctx, eventID, categories, c), nil
}

// IngestWinner matches one announced winner, records it and, when the
// stored result changed, recomputes the event. An unmatched candidate is
// not an error; the report carries the reason.
func (s *Service) IngestWinner(ctx context.Context, eventID string, c model.WinnerCandidate) (IngestReport, error) {
	categories, err := s.categories(ctx, eventID)
	if err != nil {
		return IngestReport{Candidate: c}, err
	}
	report, err := s.record(ctx, eventID, categories, c)
	if err != nil || !report.Outcome.Changed() {
		return report, err
	}
	return s.afterChange(ctx, eventID, report, "winner")
}

// IngestWinners ingests a batch of candidates and recomputes the event once
// if any result changed. Per-candidate failures are joined into the error.
func (s *Service) IngestWinners(ctx context.Context, eventID string, candidates []model.WinnerCandidate) ([]IngestReport, error) {
	categories, err := s.categories(ctx, eventID)
	if err != nil {
		return nil, err
	}

	reports := make([]IngestReport, 0, len(candidates))
	var errs []error
	changed := -1
	for _, c := range candidates {
		report, err := s.record(ctx, eventID, categories, c)
		if err != nil {
			errs = append(errs, err)
		}
		if report.Outcome.Changed() {
			changed = len(reports)
		}
		reports = append(reports, report)
	}

	if changed >= 0 {
		last, err := s.afterChange(ctx, eventID, reports[changed], "winners")
		reports[changed] = last
		if err != nil {
			errs = append(errs, err)
		}
	}
	return reports, errors.Join(errs...)
}

func (s *Service) record(ctx context.Context, eventID string, categories []model.Category, c model.WinnerCandidate) (IngestReport, error) {
	report := IngestReport{Candidate: c}
	report.Resolution = s.matcher.Match(ctx, eventID, categories, c)
	if !report.Resolution.Matched {
		return report, nil
	}

	result, outcome, err := s.recorder.RecordWinner(ctx, report.Resolution.CategoryID, report.Resolution.NomineeID)
	if err != nil {
		report.Error = err.Error()
		return report, fmt.Errorf("record %s: %w", report.Resolution.CategoryID, err)
	}
	report.Outcome = outcome
	report.Result = &result
	if outcome.Changed() {
		s.cache.invalidate(eventID)
	}
	return report, nil
}

// afterChange triggers recomputation for a changed result. In sync mode a
// failed inline run falls back to the queue when it is running.
func (s *Service) afterChange(ctx context.Context, eventID string, report IngestReport, reason string) (IngestReport, error) {
	if s.mode == IngestQueue {
		if err := s.ScheduleRecompute(ctx, eventID, reason); err != nil {
			report.Error = err.Error()
			return report, err
		}
		report.Scheduled = true
		return report, nil
	}

	rows, err := s.RecomputeEvent(ctx, eventID)
	if err == nil {
		report.Recomputed = rows
		return report, nil
	}
	report.Error = err.Error()
	if serr := s.ScheduleRecompute(ctx, eventID, reason+"_retry"); serr == nil {
		report.Scheduled = true
	}
	return report, err
}

// RecomputeEvent rebuilds the event's scores inline, bounded by the
// recompute timeout.
func (s *Service) RecomputeEvent(ctx context.Context, eventID string) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.recomputeTimeout)
	defer cancel()
	return s.engine.RecomputeEvent(ctx, eventID)
}

// Recompute rebuilds the event's scores inline and returns the full report.
func (s *Service) Recompute(ctx context.Context, eventID string) (scoring.Report, error) {
	ctx, cancel := context.WithTimeout(ctx, s.recomputeTimeout)
	defer cancel()
	return s.engine.Recompute(ctx, eventID)
}

// ScheduleRecompute queues a recomputation of the event. Requests for an
// event that is already queued coalesce into the queued job.
func (s *Service) ScheduleRecompute(ctx context.Context, eventID, reason string) error {
	s.mu.RLock()
	q, started := s.jobQueue, s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	err := q.Submit(ctx, eventqueue.NewJob(eventID, reason))
	switch {
	case err == nil:
		return nil
	case errors.Is(err, eventqueue.ErrFull):
		return fmt.Errorf("%w: event %s", ErrBackpressure, eventID)
	case errors.Is(err, eventqueue.ErrClosed):
		return ErrNotStarted
	default:
		return err
	}
}

// Analyze returns the event's analytics snapshot, served from cache while
// no result or ballot changed and the TTL has not expired.
func (s *Service) Analyze(ctx context.Context, eventID string) (analytics.Snapshot, error) {
	if snap, ok := s.cache.get(eventID); ok {
		return snap, nil
	}
	gen := s.cache.generation(eventID)
	snap, err := s.analyzer.Analyze(ctx, eventID)
	if err != nil {
		return analytics.Snapshot{}, err
	}
	if len(snap.Categories) == 0 {
		return analytics.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	s.cache.put(eventID, gen, snap)
	return snap, nil
}

// Results returns the recorded winners of the event.
func (s *Service) Results(ctx context.Context, eventID string) ([]model.Result, error) {
	if _, err := s.categories(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.Results(ctx, eventID)
}

// Standings returns one league's ranking. A non-positive limit selects the
// default page size; larger limits are capped.
func (s *Service) Standings(ctx context.Context, eventID, leagueID string, limit int) ([]types.Entry, error) {
	if limit <= 0 {
		limit = DefaultStandingsLimit
	}
	if limit > s.maxStandingsLimit {
		limit = s.maxStandingsLimit
	}
	return s.store.Standings(ctx, eventID, leagueID, limit)
}

// Events lists the events known to the store.
func (s *Service) Events(ctx context.Context) ([]string, error) {
	return s.store.Events(ctx)
}

func (s *Service) categories(ctx context.Context, eventID string) ([]model.Category, error) {
	categories, err := s.store.Categories(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownEvent, eventID)
	}
	return categories, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":           s.started,
		"ingestMode":        string(s.mode),
		"workerCount":       s.workerCount,
		"queueSize":         s.queueSize,
		"dedupeSize":        s.dedupeSize,
		"multiplier":        s.multiplier,
		"recomputeTimeout":  s.recomputeTimeout.String(),
		"recomputeInterval": s.recomputeInterval.String(),
		"cachedSnapshots":   s.cache.size(),
		"pendingEvents":     s.deduper.Size(),
	}

	if s.started {
		queueLen := s.jobQueue.Len(context.Background())
		stats["queueLength"] = queueLen
		metrics.UpdateQueueSize(queueLen)
	}
	return stats
}

// Ping checks that the store answers.
func (s *Service) Ping(ctx context.Context) error {
	_, err := s.store.Events(ctx)
	return err
}
