// Package queue defines the contract for enqueuing and consuming ranking
// mutations.
//
// Implementations may use channels or more advanced structures. The service
// runs on an in-memory bounded queue; enqueue never blocks the caller.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/okian/ladder/internal/domain/model"
	"github.com/okian/ladder/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 100000
	defaultBufferSize    = 100000
)

// Kind discriminates the payload carried by an Event.
type Kind int

const (
	// KindPointEvent is an activity event still to be scored and durably added.
	KindPointEvent Kind = iota
	// KindScoreUpdate is a cache write-through for an already committed total.
	KindScoreUpdate
)

// Event is the unit of work flowing through the update queue. Exactly one
// payload is meaningful, selected by Kind.
type Event struct {
	Kind  Kind
	Point model.PointEvent
	Score model.ScoreUpdate
}

// NewPointEvent wraps an activity event for the queue.
func NewPointEvent(e model.PointEvent) Event {
	return Event{Kind: KindPointEvent, Point: e}
}

// NewScoreUpdate wraps a write-through for the queue.
func NewScoreUpdate(s model.ScoreUpdate) Event {
	return Event{Kind: KindScoreUpdate, Score: s}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds an event to the queue.
	// Returns false if the queue is full and the event was not enqueued.
	Enqueue(ctx context.Context, e Event) bool

	// Dequeue returns a channel that will receive events as they become available.
	// The channel will be closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Event

	// Len returns the current number of queued events.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new events can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool

	// Drain closes the queue and blocks until consumers empty it, up to a
	// bounded timeout. Shutdown path: accepted events are flushed, not lost.
	Drain(ctx context.Context) error
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	events     chan Event
	capacity   int
	bufferSize int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}

	for _, opt := range opts {
		opt(q)
	}

	// The channel is the queue; a buffer smaller than capacity would cap
	// the effective capacity silently.
	if q.bufferSize < q.capacity {
		q.bufferSize = q.capacity
	}
	q.events = make(chan Event, q.bufferSize)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// Enqueue adds an event to the queue. It never blocks: a full or closed
// queue yields false and the caller decides how to surface backpressure.
func (q *InMemoryQueue) Enqueue(ctx context.Context, e Event) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "closed")
		return false
	}

	if len(q.events) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "capacity_exceeded")
		return false
	}

	select {
	case q.events <- e:
		metrics.RecordQueueEnqueue()
		metrics.UpdateQueueSize(len(q.events))
		return true
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return false
	default:
		metrics.RecordQueueEnqueueError()
		metrics.RecordErrorByComponent("queue", "queue_full")
		return false
	}
}

// Dequeue returns a channel that will receive events as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Event {
	out := make(chan Event)
	go func() {
		defer close(out)
		for event := range q.events {
			select {
			case out <- event:
				metrics.RecordQueueDequeue()
				metrics.UpdateQueueSize(len(q.events))
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued events.
func (q *InMemoryQueue) Len(ctx context.Context) int {
	size := len(q.events)
	metrics.UpdateQueueSize(size)
	return size
}

// Close gracefully shuts down the queue. Queued events remain consumable
// until the channel drains.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}

	close(q.events)
	q.closed = true

	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}

// drainTimeout bounds how long Drain waits for consumers to empty the queue.
const drainTimeout = 30 * time.Second

// Drain closes the queue and waits for consumers to empty it, up to a
// bounded timeout. Used during shutdown so accepted events are not lost.
func (q *InMemoryQueue) Drain(ctx context.Context) error {
	if err := q.Close(); err != nil {
		return err
	}

	deadline := time.NewTimer(drainTimeout)
	defer deadline.Stop()
	tick := time.NewTicker(10 * time.Millisecond)
	defer tick.Stop()

	for {
		if len(q.events) == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return ErrDrainTimeout
		case <-tick.C:
		}
	}
}
