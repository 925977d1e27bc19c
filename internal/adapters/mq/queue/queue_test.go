package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/okian/ladder/internal/domain/model"
)

func TestInMemoryQueue_BasicOperations(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}

	ev := NewPointEvent(model.PointEvent{EventID: "ev-1", UserID: 7, Activity: "level_test", Amount: 8})
	if !q.Enqueue(ctx, ev) {
		t.Error("expected enqueue to succeed")
	}

	if l := q.Len(ctx); l != 1 {
		t.Errorf("expected length 1, got %d", l)
	}

	eventChan := q.Dequeue(ctx)
	got := <-eventChan
	if got.Kind != KindPointEvent {
		t.Errorf("expected point event kind, got %v", got.Kind)
	}
	if got.Point.EventID != "ev-1" {
		t.Errorf("expected ev-1, got %v", got.Point.EventID)
	}

	if l := q.Len(ctx); l != 0 {
		t.Errorf("expected length 0, got %d", l)
	}
}

func TestInMemoryQueue_ScoreUpdates(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	if !q.Enqueue(ctx, NewScoreUpdate(model.ScoreUpdate{UserID: 3, NewTotal: 900})) {
		t.Fatal("expected enqueue to succeed")
	}

	got := <-q.Dequeue(ctx)
	if got.Kind != KindScoreUpdate {
		t.Errorf("expected score update kind, got %v", got.Kind)
	}
	if got.Score.UserID != 3 || got.Score.NewTotal != 900 {
		t.Errorf("unexpected payload: %+v", got.Score)
	}
}

func TestInMemoryQueue_Capacity(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	ev := func(id string) Event {
		return NewPointEvent(model.PointEvent{EventID: id, UserID: 1, Activity: "study_session", Amount: 1})
	}

	if !q.Enqueue(ctx, ev("ev-1")) {
		t.Error("expected enqueue to succeed")
	}
	if !q.Enqueue(ctx, ev("ev-2")) {
		t.Error("expected enqueue to succeed")
	}

	// Third enqueue must be rejected, not block.
	if q.Enqueue(ctx, ev("ev-3")) {
		t.Error("expected enqueue to fail when full")
	}

	if l := q.Len(ctx); l != 2 {
		t.Errorf("expected length 2, got %d", l)
	}
}

func TestInMemoryQueue_EnqueueAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2))
	ctx := context.Background()

	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if !q.IsClosed() {
		t.Error("expected queue to report closed")
	}

	if q.Enqueue(ctx, NewScoreUpdate(model.ScoreUpdate{UserID: 1, NewTotal: 10})) {
		t.Error("expected enqueue on closed queue to fail")
	}

	// Close is idempotent.
	if err := q.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}
}

func TestInMemoryQueue_DequeueDrainsAfterClose(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !q.Enqueue(ctx, NewScoreUpdate(model.ScoreUpdate{UserID: int64(i), NewTotal: 100})) {
			t.Fatalf("enqueue %d failed", i)
		}
	}
	if err := q.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	// Queued events survive the close and the channel closes after the drain.
	got := 0
	for range q.Dequeue(ctx) {
		got++
	}
	if got != 3 {
		t.Errorf("expected 3 drained events, got %d", got)
	}
}

func TestInMemoryQueue_Drain(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(4))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		q.Enqueue(ctx, NewScoreUpdate(model.ScoreUpdate{UserID: int64(i), NewTotal: 1}))
	}

	// Consumer empties the queue while Drain waits.
	go func() {
		for range q.Dequeue(ctx) { //nolint:revive // intentional drain
		}
	}()

	drainCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := q.Drain(drainCtx); err != nil {
		t.Errorf("drain failed: %v", err)
	}
}

func TestInMemoryQueue_ConcurrentAccess(t *testing.T) {
	q := NewInMemoryQueue(WithCapacity(2000))
	ctx := context.Background()
	numGoroutines := 10
	numEvents := 100

	done := make(chan bool, numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func(id int) {
			for j := 0; j < numEvents; j++ {
				ev := NewPointEvent(model.PointEvent{
					EventID:  fmt.Sprintf("ev-%d-%d", id, j),
					UserID:   int64(id),
					Activity: "study_session",
					Amount:   float64(j),
				})
				if !q.Enqueue(ctx, ev) {
					t.Errorf("enqueue failed for producer %d", id)
					break
				}
			}
			done <- true
		}(i)
	}

	for i := 0; i < numGoroutines; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatal("producers timed out")
		}
	}

	if l := q.Len(ctx); l != numGoroutines*numEvents {
		t.Errorf("expected %d queued events, got %d", numGoroutines*numEvents, l)
	}

	consumed := 0
	eventChan := q.Dequeue(ctx)
	for consumed < numGoroutines*numEvents {
		select {
		case <-eventChan:
			consumed++
		case <-time.After(5 * time.Second):
			t.Fatalf("consumer stalled after %d events", consumed)
		}
	}
}
