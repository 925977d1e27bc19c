package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	queue "github.com/okian/ladder/internal/adapters/mq/queue"
	worker "github.com/okian/ladder/internal/adapters/mq/worker"
	model "github.com/okian/ladder/internal/domain/model"
	points "github.com/okian/ladder/internal/domain/points"
	"github.com/okian/ladder/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// Mock implementations for testing.
type mockQueue struct {
	eventChan chan queue.Event
}

func newMockQueue() *mockQueue {
	return &mockQueue{eventChan: make(chan queue.Event, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan queue.Event {
	return mq.eventChan
}

func (mq *mockQueue) addEvent(event queue.Event) {
	mq.eventChan <- event
}

type mockCalculator struct {
	err error
}

func (mc *mockCalculator) Points(ctx context.Context, in points.Input) (int64, error) {
	if mc.err != nil {
		return 0, mc.err
	}
	return int64(in.Amount) * 10, nil
}

type mockAdder struct {
	mu     sync.Mutex
	totals map[int64]int64
	calls  int
	err    error
}

func newMockAdder() *mockAdder {
	return &mockAdder{totals: make(map[int64]int64)}
}

func (ma *mockAdder) AddPoints(ctx context.Context, userID int64, delta int64) (int64, error) {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	if ma.err != nil {
		return 0, ma.err
	}
	ma.calls++
	ma.totals[userID] += delta
	return ma.totals[userID], nil
}

func (ma *mockAdder) total(userID int64) int64 {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.totals[userID]
}

func (ma *mockAdder) callCount() int {
	ma.mu.Lock()
	defer ma.mu.Unlock()
	return ma.calls
}

type mockCache struct {
	mu      sync.Mutex
	upserts map[int64]int64
	err     error
}

func newMockCache() *mockCache {
	return &mockCache{upserts: make(map[int64]int64)}
}

func (mc *mockCache) Upsert(ctx context.Context, userID int64, pts int64) error {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	if mc.err != nil {
		return mc.err
	}
	mc.upserts[userID] = pts
	return nil
}

func (mc *mockCache) cached(userID int64) (int64, bool) {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	v, ok := mc.upserts[userID]
	return v, ok
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if cond() {
			return
		}
		select {
		case <-deadline:
			t.Fatal("condition not met in time")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestWorker_PointEvent(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		adder := newMockAdder()
		cache := newMockCache()
		w := worker.NewInMemoryWorker(mq, &mockCalculator{}, adder, cache, worker.WithName("test-worker"))

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a point event arrives", func() {
			mq.addEvent(queue.NewPointEvent(model.PointEvent{
				EventID: "ev-1", UserID: 7, Activity: "level_test", Amount: 5,
			}))

			convey.Convey("Then the delta is committed durably and written through", func() {
				waitFor(t, func() bool { return adder.total(7) == 50 })
				waitFor(t, func() bool {
					v, ok := cache.cached(7)
					return ok && v == 50
				})
			})
		})

		convey.Convey("When the award is zero", func() {
			mq.addEvent(queue.NewPointEvent(model.PointEvent{
				EventID: "ev-2", UserID: 7, Activity: "level_test", Amount: 0,
			}))
			mq.addEvent(queue.NewScoreUpdate(model.ScoreUpdate{UserID: 99, NewTotal: 1}))

			convey.Convey("Then the store is never touched", func() {
				// The score update acts as a fence: once it lands, the
				// zero-award event has been processed too.
				waitFor(t, func() bool {
					_, ok := cache.cached(99)
					return ok
				})
				convey.So(adder.callCount(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestWorker_ScoreUpdate(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		adder := newMockAdder()
		cache := newMockCache()
		w := worker.NewInMemoryWorker(mq, &mockCalculator{}, adder, cache)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a write-through arrives", func() {
			mq.addEvent(queue.NewScoreUpdate(model.ScoreUpdate{UserID: 3, NewTotal: 900}))

			convey.Convey("Then only the cache is written", func() {
				waitFor(t, func() bool {
					v, ok := cache.cached(3)
					return ok && v == 900
				})
				convey.So(adder.callCount(), convey.ShouldEqual, 0)
			})
		})
	})
}

func TestWorker_DurableFirst(t *testing.T) {
	convey.Convey("Given a store that rejects writes", t, func() {
		mq := newMockQueue()
		adder := newMockAdder()
		adder.err = errors.New("store down")
		cache := newMockCache()
		w := worker.NewInMemoryWorker(mq, &mockCalculator{}, adder, cache)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When a point event arrives", func() {
			mq.addEvent(queue.NewPointEvent(model.PointEvent{
				EventID: "ev-1", UserID: 7, Activity: "level_test", Amount: 5,
			}))
			mq.addEvent(queue.NewScoreUpdate(model.ScoreUpdate{UserID: 99, NewTotal: 1}))

			convey.Convey("Then the cache never sees the failed total", func() {
				waitFor(t, func() bool {
					_, ok := cache.cached(99)
					return ok
				})
				_, ok := cache.cached(7)
				convey.So(ok, convey.ShouldBeFalse)
			})
		})
	})
}

func TestWorker_CacheFailureIsNotFatal(t *testing.T) {
	convey.Convey("Given a cache that rejects writes", t, func() {
		mq := newMockQueue()
		adder := newMockAdder()
		cache := newMockCache()
		cache.err = errors.New("cache closed")
		w := worker.NewInMemoryWorker(mq, &mockCalculator{}, adder, cache)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When point events arrive", func() {
			mq.addEvent(queue.NewPointEvent(model.PointEvent{
				EventID: "ev-1", UserID: 7, Activity: "level_test", Amount: 5,
			}))
			mq.addEvent(queue.NewPointEvent(model.PointEvent{
				EventID: "ev-2", UserID: 7, Activity: "level_test", Amount: 5,
			}))

			convey.Convey("Then durable totals keep accumulating", func() {
				waitFor(t, func() bool { return adder.total(7) == 100 })
			})
		})
	})
}

func TestWorker_Shutdown(t *testing.T) {
	convey.Convey("Given a running worker", t, func() {
		mq := newMockQueue()
		w := worker.NewInMemoryWorker(mq, &mockCalculator{}, newMockAdder(), newMockCache())

		ctx := context.Background()
		go w.Run(ctx)

		convey.Convey("When shutdown is requested", func() {
			shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
			defer cancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)

			convey.Convey("And a second shutdown is a no-op", func() {
				convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool_ProcessesAcrossWorkers(t *testing.T) {
	convey.Convey("Given a pool over a real queue", t, func() {
		q := queue.NewInMemoryQueue(queue.WithCapacity(100))
		adder := newMockAdder()
		cache := newMockCache()
		pool := worker.NewPool(4, q, &mockCalculator{}, adder, cache)

		convey.So(pool.Size(), convey.ShouldEqual, 4)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		pool.Start(ctx)

		convey.Convey("When many events are enqueued", func() {
			for i := 0; i < 20; i++ {
				ok := q.Enqueue(ctx, queue.NewPointEvent(model.PointEvent{
					EventID: "ev", UserID: 1, Activity: "study_session", Amount: 1,
				}))
				convey.So(ok, convey.ShouldBeTrue)
			}

			convey.Convey("Then all deltas are applied", func() {
				waitFor(t, func() bool { return adder.total(1) == 200 })

				shutdownCtx, cancelShutdown := context.WithTimeout(ctx, 2*time.Second)
				defer cancelShutdown()
				convey.So(pool.Shutdown(shutdownCtx), convey.ShouldBeNil)
			})
		})
	})
}

func TestPool_DefaultSize(t *testing.T) {
	convey.Convey("Given a pool with a non-positive worker count", t, func() {
		q := queue.NewInMemoryQueue()
		pool := worker.NewPool(0, q, &mockCalculator{}, newMockAdder(), newMockCache())

		convey.Convey("Then a CPU-derived default is used", func() {
			convey.So(pool.Size(), convey.ShouldBeGreaterThan, 0)
		})
	})
}
