// Package dedupe tracks event ids for at-most-once point ingestion.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// defaultMaxSize bounds the tracker; oldest ids are evicted first, so a
// replay older than the window is accepted again. Point events are retried
// within minutes, not days, which keeps the window safe in practice.
const defaultMaxSize = 500000

// Deduper records seen event ids so retried events are acknowledged
// without being applied twice.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it
	// if not. Returns true for an already-seen id.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord removes an id so the event can be retried. Used when an
	// event was recorded but could not be enqueued.
	Unrecord(ctx context.Context, id string)

	// Size returns the number of ids currently tracked.
	Size() int64
}

// inMemoryDeduper implements Deduper with a map for membership and a ring
// of ids in arrival order for FIFO eviction. maxSize <= 0 disables
// eviction entirely.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	ring    []string
	next    int
	maxSize int
	size    atomic.Int64
}

// NewInMemoryDeduper creates a deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: defaultMaxSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	d.seen = make(map[string]struct{})
	if d.maxSize > 0 {
		d.ring = make([]string, d.maxSize)
	}

	return d
}

func (d *inMemoryDeduper) SeenAndRecord(ctx context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; ok {
		return true
	}

	if d.maxSize > 0 {
		// The slot about to be reused holds the oldest id; an Unrecord
		// may have removed it from the map already.
		if old := d.ring[d.next]; old != "" {
			if _, ok := d.seen[old]; ok {
				delete(d.seen, old)
				d.size.Add(-1)
			}
		}
		d.ring[d.next] = id
		d.next = (d.next + 1) % d.maxSize
	}

	d.seen[id] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryDeduper) Unrecord(ctx context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[id]; !ok {
		return
	}
	// The ring slot stays behind as a tombstone; eviction skips ids that
	// are no longer in the map.
	delete(d.seen, id)
	d.size.Add(-1)
}

func (d *inMemoryDeduper) Size() int64 {
	return d.size.Load()
}
