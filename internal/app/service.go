// Package service orchestrates the ranking read models and the asynchronous
// write path on top of the cache, the durable store and the update queue.
// It implements the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/google/uuid"
	"github.com/okian/ladder/internal/adapters/cache"
	eventqueue "github.com/okian/ladder/internal/adapters/mq/queue"
	workerpool "github.com/okian/ladder/internal/adapters/mq/worker"
	"github.com/okian/ladder/internal/adapters/store"
	"github.com/okian/ladder/internal/domain/dedupe"
	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/internal/domain/points"
	"github.com/okian/ladder/internal/domain/rival"
	"github.com/okian/ladder/internal/domain/types"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultTopWindowSize = 100
	defaultQueueSize     = 100000
	defaultDedupeSize    = 500000
	topEntryCount        = 3
)

// Service implements the ranking operations for the leaderboard system.
// The store and cache are injected; the queue, deduper and worker pool are
// owned by the service and live between Start and Stop.
type Service struct {
	mu sync.RWMutex

	// Injected components
	store store.Store
	cache cache.Cache

	// Owned components
	deduper    dedupe.Deduper
	queue      eventqueue.Queue
	calculator points.Calculator
	pool       *workerpool.Pool

	// Configuration
	topWindowSize   int
	workerCount     int
	queueSize       int
	dedupeSize      int
	activityWeights map[string]float64
	defaultWeight   float64

	// State
	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTopWindowSize sets how many entries the top ranking window holds.
func WithTopWindowSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.topWindowSize = n
		}
	}
}

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the maximum size of the update queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the deduplication window.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithActivityWeights sets per-activity point weights and the default weight.
func WithActivityWeights(weights map[string]float64, defaultWeight float64) Option {
	return func(s *Service) {
		s.activityWeights = weights
		s.defaultWeight = defaultWeight
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over an injected store and cache.
func New(st store.Store, c cache.Cache, opts ...Option) *Service {
	s := &Service{
		store:         st,
		cache:         c,
		topWindowSize: defaultTopWindowSize,
		workerCount:   runtime.NumCPU() * 2,
		queueSize:     defaultQueueSize,
		dedupeSize:    defaultDedupeSize,
		defaultWeight: 1.0,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the owned components and starts the worker pool.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.deduper = dedupe.NewInMemoryDeduper(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = eventqueue.NewInMemoryQueue(
		eventqueue.WithCapacity(s.queueSize),
		eventqueue.WithBufferSize(s.queueSize),
	)
	s.calculator = points.NewWeightedCalculator(
		points.WithActivityWeights(s.activityWeights, s.defaultWeight),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.calculator, s.store, s.cache)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("workers", s.pool.Size()),
		logger.Int("queue_size", s.queueSize),
		logger.Int("top_window", s.topWindowSize),
	)

	return nil
}

// Stop gracefully shuts down the owned components. The injected store and
// cache are closed by their owner, not here.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	// Events acknowledged to callers must reach the store before the
	// workers go away; the drain keeps the pool consuming until the queue
	// is empty or the timeout fires.
	if s.queue != nil {
		if err := s.queue.Drain(ctx); err != nil {
			s.logger.Warn(ctx, "queue did not drain cleanly", logger.Error(err))
		}
	}
	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// GetTopRankings returns the live top window with enriched profiles, the
// distinguished top three and the requesting user's own entry.
//
// The cache is the only source for the window: when it is empty or
// unavailable the result is explicitly empty rather than falling back to a
// full durable scan. The personal entry is resolved independently of window
// membership, with a durable daily_rank fallback when the cache has no
// record of the requester.
func (s *Service) GetTopRankings(ctx context.Context, requestingUserID *int64) (types.Rankings, error) {
	metrics.RecordRankingQuery("top")

	result := types.Rankings{
		Top3:     []types.Entry{},
		Rankings: []types.Entry{},
	}

	members, err := s.cache.TopN(ctx, s.topWindowSize)
	if err != nil {
		s.logger.Warn(ctx, "top window unavailable, serving empty rankings", logger.Error(err))
		members = nil
	}

	if len(members) > 0 {
		ids := make([]int64, len(members))
		for i, m := range members {
			ids[i] = m.UserID
		}

		users, err := s.store.FindByIDs(ctx, ids)
		if err != nil {
			return types.Rankings{}, fmt.Errorf("enrich top window: %w", err)
		}
		byID := make(map[int64]model.User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}

		// Cache order is authoritative; members whose profile no longer
		// resolves are skipped and ranks stay contiguous over the rest.
		entries := make([]types.Entry, 0, len(members))
		for _, m := range members {
			u, ok := byID[m.UserID]
			if !ok {
				continue
			}
			entries = append(entries, entryFor(len(entries)+1, u, m.Points))
		}
		result.Rankings = entries
		result.Top3 = entries[:min(topEntryCount, len(entries))]
	}

	if requestingUserID != nil {
		me, err := s.personalEntry(ctx, *requestingUserID)
		if err != nil {
			return types.Rankings{}, err
		}
		result.Me = me
	}

	return result, nil
}

// personalEntry resolves the requester's own row: live rank from the cache
// when present, otherwise the persisted daily rank. Absence is nil, never
// an error.
func (s *Service) personalEntry(ctx context.Context, userID int64) (*types.Entry, error) {
	u, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve personal entry: %w", err)
	}

	pos, err := s.cache.Rank(ctx, userID)
	if err == nil {
		pts := u.TotalPoint
		if cached, serr := s.cache.Score(ctx, userID); serr == nil {
			pts = cached
		}
		e := entryFor(pos+1, u, pts)
		return &e, nil
	}
	if !errors.Is(err, cache.ErrNotFound) {
		s.logger.Warn(ctx, "cache rank lookup failed, using durable fallback",
			logger.Int64("user_id", userID),
			logger.Error(err),
		)
	}

	if u.DailyRank == nil {
		return nil, nil
	}
	e := entryFor(*u.DailyRank, u, u.TotalPoint)
	return &e, nil
}

// GetFilteredRankings returns a demographic slice ranked from the durable
// store, with the requester extracted by identity match in the same pass.
func (s *Service) GetFilteredRankings(ctx context.Context, f model.Filter, requestingUserID *int64) (types.Rankings, error) {
	metrics.RecordRankingQuery("filtered")

	users, err := s.store.ListByFilter(ctx, f)
	if err != nil {
		return types.Rankings{}, fmt.Errorf("filtered rankings: %w", err)
	}

	result := types.Rankings{
		Top3:     []types.Entry{},
		Rankings: make([]types.Entry, 0, len(users)),
	}
	for i, u := range users {
		e := entryFor(i+1, u, u.TotalPoint)
		result.Rankings = append(result.Rankings, e)
		if requestingUserID != nil && u.ID == *requestingUserID {
			me := e
			result.Me = &me
		}
	}
	result.Top3 = result.Rankings[:min(topEntryCount, len(result.Rankings))]

	return result, nil
}

// UpdateScore queues a cache write-through for a total the caller already
// committed durably. Fire and forget: failures are logged and self-heal at
// the next rank recomputation.
func (s *Service) UpdateScore(ctx context.Context, userID int64, newTotal int64) {
	if !s.isStarted() {
		s.logger.Warn(ctx, "score update dropped, service not started",
			logger.Int64("user_id", userID),
		)
		metrics.RecordScoreUpdateError()
		return
	}

	ok := s.queue.Enqueue(ctx, eventqueue.NewScoreUpdate(model.ScoreUpdate{
		UserID:   userID,
		NewTotal: newTotal,
	}))
	if !ok {
		metrics.RecordScoreUpdateError()
		s.logger.Warn(ctx, "score update dropped, queue full",
			logger.Int64("user_id", userID),
			logger.Int64("new_total", newTotal),
		)
	}
}

// SubmitPointEvent validates, deduplicates and queues an activity event.
// Returns ErrDuplicateEvent for an already-seen id and ErrBackpressure when
// the queue is full; on backpressure the id is unrecorded so the caller can
// retry.
func (s *Service) SubmitPointEvent(ctx context.Context, ev model.PointEvent) error {
	if !s.isStarted() {
		return ErrNotStarted
	}

	if ev.EventID == "" {
		ev.EventID = uuid.NewString()
	}

	if s.deduper.SeenAndRecord(ctx, ev.EventID) {
		metrics.RecordDuplicateEvent()
		return ErrDuplicateEvent
	}

	if !s.queue.Enqueue(ctx, eventqueue.NewPointEvent(ev)) {
		// Give the id back so a retry of the same event is not swallowed
		// as a duplicate.
		s.deduper.Unrecord(ctx, ev.EventID)
		return ErrBackpressure
	}

	return nil
}

// CompareRival resolves the user and their assigned rival from the durable
// store and produces the comparison outcome.
func (s *Service) CompareRival(ctx context.Context, userID int64) (types.RivalComparison, error) {
	me, err := s.store.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.RivalComparison{}, ErrUserNotFound
		}
		return types.RivalComparison{}, fmt.Errorf("resolve user: %w", err)
	}

	if me.RivalID == nil {
		return rival.Compare(me, nil), nil
	}

	r, err := s.store.FindByID(ctx, *me.RivalID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Rival row is gone; the comparator reports "rival left".
			return rival.Compare(me, nil), nil
		}
		return types.RivalComparison{}, fmt.Errorf("resolve rival: %w", err)
	}

	return rival.Compare(me, &r), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":      s.started,
		"worker_count": s.workerCount,
		"queue_size":   s.queueSize,
		"top_window":   s.topWindowSize,
	}

	if s.started {
		stats["queue_length"] = s.queue.Len(ctx)
		stats["dedupe_entries"] = s.deduper.Size()
		stats["cache_members"] = s.cache.Count(ctx)
	}

	return stats
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

func entryFor(rank int, u model.User, pts int64) types.Entry {
	return types.Entry{
		Rank:         rank,
		UserID:       u.ID,
		MaskedName:   u.MaskedName(),
		TotalPoint:   pts,
		AgeBucket:    u.AgeBucket(),
		ProfileImage: u.ProfileImage,
	}
}
