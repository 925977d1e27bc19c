// Package worker applies queued ranking mutations asynchronously: activity
// events are scored and durably added before the cache is touched, direct
// score updates go straight to the cache.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/okian/ladder/internal/adapters/mq/queue"
	"github.com/okian/ladder/internal/domain/points"
	"github.com/okian/ladder/pkg/logger"
	"github.com/okian/ladder/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 2 // multiplier for runtime.NumCPU()
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Adder durably applies a point delta and returns the committed total.
type Adder interface {
	AddPoints(ctx context.Context, userID int64, delta int64) (int64, error)
}

// CacheWriter repositions a member in the order-statistics cache.
type CacheWriter interface {
	Upsert(ctx context.Context, userID int64, points int64) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes queued mutations until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker for processing queued mutations.
type InMemoryWorker struct {
	queue      Queue
	calculator points.Calculator
	store      Adder
	cache      CacheWriter
	name       string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, calc points.Calculator, store Adder, cache CacheWriter, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:      q,
		calculator: calc,
		store:      store,
		cache:      cache,
		name:       "worker",
		shutdown:   make(chan struct{}),
		done:       make(chan struct{}),
		logger:     logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}

	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}

	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	eventChan := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			w.flushReady(ctx, eventChan)
			return
		case event, ok := <-eventChan:
			if !ok {
				return
			}

			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		}
	}
}

// flushReady consumes events the queue has already handed off so a drained
// shutdown does not strand the last in-flight handoffs.
func (w *InMemoryWorker) flushReady(ctx context.Context, events <-chan Event) {
	for {
		select {
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing event", logger.Error(err))
			}
		default:
			return
		}
	}
}

// Shutdown gracefully stops the worker. Safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processEvent handles a single queued mutation.
func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	switch event.Kind {
	case queue.KindPointEvent:
		return w.applyPointEvent(ctx, event)
	case queue.KindScoreUpdate:
		return w.applyScoreUpdate(ctx, event)
	default:
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "unknown_kind")
		return fmt.Errorf("unknown event kind %d", event.Kind)
	}
}

// applyPointEvent scores the activity, commits the delta durably and then
// repositions the member in the cache. Durable write first: a cache miss
// self-heals at the next recomputation, a lost point does not.
func (w *InMemoryWorker) applyPointEvent(ctx context.Context, event Event) error {
	ev := event.Point

	delta, err := w.calculator.Points(ctx, points.Input{
		UserID:   ev.UserID,
		Activity: ev.Activity,
		Amount:   ev.Amount,
	})
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "scoring_error")
		w.logger.Error(ctx, "scoring failed for event",
			logger.String("event_id", ev.EventID),
			logger.Error(err),
		)
		return fmt.Errorf("score event %s: %w", ev.EventID, err)
	}
	if delta == 0 {
		metrics.RecordPointEvent()
		return nil
	}

	total, err := w.store.AddPoints(ctx, ev.UserID, delta)
	if err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "store_error")
		w.logger.Error(ctx, "durable point add failed",
			logger.String("event_id", ev.EventID),
			logger.Int64("user_id", ev.UserID),
			logger.Error(err),
		)
		return fmt.Errorf("add points for event %s: %w", ev.EventID, err)
	}
	metrics.RecordPointEvent()

	// Best effort: the total is already committed, the cache converges at
	// the next recomputation if this write is lost.
	if err := w.cache.Upsert(ctx, ev.UserID, total); err != nil {
		metrics.RecordScoreUpdateError()
		metrics.RecordErrorByComponent("worker", "cache_error")
		w.logger.Warn(ctx, "cache upsert failed after durable commit",
			logger.Int64("user_id", ev.UserID),
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordScoreUpdate()

	return nil
}

// applyScoreUpdate writes an already committed total through to the cache.
func (w *InMemoryWorker) applyScoreUpdate(ctx context.Context, event Event) error {
	su := event.Score

	if err := w.cache.Upsert(ctx, su.UserID, su.NewTotal); err != nil {
		metrics.RecordScoreUpdateError()
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "cache_error")
		w.logger.Warn(ctx, "write-through failed",
			logger.Int64("user_id", su.UserID),
			logger.Error(err),
		)
		return nil
	}
	metrics.RecordScoreUpdate()

	return nil
}

// Pool manages multiple workers draining the same queue.
type Pool struct {
	workers []*InMemoryWorker

	stopOnce sync.Once

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive workerCount defaults to a
// multiple of the CPU count.
func NewPool(workerCount int, q Queue, calc points.Calculator, store Adder, cache CacheWriter) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		logger:  logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			q, calc, store, cache,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerCount(workerCount)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers in the pool.
func (p *Pool) Size() int {
	return len(p.workers)
}

// Stop signals all workers and waits briefly for each to finish.
func (p *Pool) Stop() {
	p.signalStop()

	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown gracefully shuts down the entire worker pool, waiting for
// in-flight events up to a bounded timeout.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.signalStop()

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}

	return nil
}

func (p *Pool) signalStop() {
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	})
}
