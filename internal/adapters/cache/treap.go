// Package cache defines the order-statistics cache interface and errors.
package cache

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/okian/ladder/pkg/metrics"
)

// Treap-based, in-memory Cache implementation.
//
// Ordering: points DESC, then userID ASC. This is the named tie-break rule
// for the live ranking: among equal totals the lower user id ranks earlier.
// The BST comparator treats "less" as "ranks earlier", so an in-order
// traversal walks the leaderboard from best to worst, and subtree sizes give
// rank and top-K in O(log n) / O(k + log n).

// treap node
type node struct {
	id     int64
	points int64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

// less returns true if (aPoints, aID) ranks earlier than (bPoints, bID).
func less(aPoints, aID, bPoints, bID int64) bool {
	if aPoints != bPoints {
		return aPoints > bPoints // higher total ranks earlier
	}
	return aID < bID // tie-break: lower id ranks earlier
}

func rotateRight(y *node) *node {
	x := y.left
	t2 := x.right
	x.right = y
	y.left = t2
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	t2 := y.left
	y.left = x
	x.right = t2
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id, points int64, prio uint64) *node {
	if n == nil {
		return &node{id: id, points: points, prio: prio, size: 1}
	}
	if less(points, id, n.points, n.id) {
		n.left = insert(n.left, id, points, prio)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, points, prio)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func deleteNode(n *node, id, points int64) *node {
	if n == nil {
		return nil
	}
	if points == n.points && id == n.id {
		// Merge children by rotating the higher priority up until leaf.
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = deleteNode(n.right, id, points)
		} else {
			n = rotateLeft(n)
			n.left = deleteNode(n.left, id, points)
		}
	} else if less(points, id, n.points, n.id) {
		n.left = deleteNode(n.left, id, points)
	} else {
		n.right = deleteNode(n.right, id, points)
	}
	fix(n)
	return n
}

// position returns the zero-based in-order position of (id, points) by
// descending from the root and counting skipped left subtrees.
func position(n *node, id, points int64) int {
	pos := 0
	for n != nil {
		if points == n.points && id == n.id {
			return pos + nsize(n.left)
		}
		if less(points, id, n.points, n.id) {
			n = n.left
		} else {
			pos += nsize(n.left) + 1
			n = n.right
		}
	}
	return -1
}

// collectTopN appends up to limit members in rank order.
func collectTopN(n *node, limit int, out *[]Member) {
	if n == nil || len(*out) >= limit {
		return
	}
	collectTopN(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, Member{UserID: n.id, Points: n.points})
	}
	if len(*out) < limit {
		collectTopN(n.right, limit, out)
	}
}

// TreapCache implements Cache with an expected O(log n) treap keyed by
// (points desc, id asc).
type TreapCache struct {
	mu   sync.RWMutex
	root *node
	byID map[int64]int64 // id -> current points
	rnd  *rand.Rand

	metricsInterval time.Duration

	closed   bool
	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewTreapCache constructs a treap cache with configuration options.
func NewTreapCache(ctx context.Context, opts ...Option) *TreapCache {
	c := &TreapCache{
		byID:            make(map[int64]int64),
		rnd:             rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // balance randomness, not security
		metricsInterval: 5 * time.Second,
		stopChan:        make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.startMetricsUpdater(ctx)

	metrics.UpdateCacheSize(0)
	return c
}

// Upsert implements Cache.Upsert with last-write-wins semantics: a retried
// or out-of-order write simply repositions the member at the given total.
func (c *TreapCache) Upsert(ctx context.Context, userID, points int64) error {
	start := time.Now()
	defer func() {
		metrics.RecordCacheUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.RecordErrorByComponent("cache", "closed")
		return ErrClosed
	}

	if old, ok := c.byID[userID]; ok {
		if old == points {
			return nil
		}
		c.root = deleteNode(c.root, userID, old)
	}
	c.byID[userID] = points
	c.root = insert(c.root, userID, points, c.rnd.Uint64())

	metrics.UpdateCacheSize(len(c.byID))
	return nil
}

// Rank returns the zero-based descending position of a member in O(log n).
func (c *TreapCache) Rank(ctx context.Context, userID int64) (int, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		metrics.RecordErrorByComponent("cache", "closed")
		return 0, ErrClosed
	}
	points, ok := c.byID[userID]
	if !ok {
		metrics.RecordErrorByComponent("cache", "not_found")
		return 0, ErrNotFound
	}
	pos := position(c.root, userID, points)
	if pos < 0 {
		// byID and the tree are updated under the same lock; a miss here
		// would mean corruption.
		metrics.RecordErrorByComponent("cache", "not_found")
		return 0, ErrNotFound
	}
	return pos, nil
}

// Score returns the cached point total of a member.
func (c *TreapCache) Score(ctx context.Context, userID int64) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		metrics.RecordErrorByComponent("cache", "closed")
		return 0, ErrClosed
	}
	points, ok := c.byID[userID]
	if !ok {
		metrics.RecordErrorByComponent("cache", "not_found")
		return 0, ErrNotFound
	}
	return points, nil
}

// TopN returns the top-N members ordered by points desc, id asc.
func (c *TreapCache) TopN(ctx context.Context, n int) ([]Member, error) {
	start := time.Now()
	defer func() {
		metrics.RecordCacheQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		metrics.RecordErrorByComponent("cache", "invalid_limit")
		return nil, ErrInvalidLimit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		metrics.RecordErrorByComponent("cache", "closed")
		return nil, ErrClosed
	}

	out := make([]Member, 0, n)
	collectTopN(c.root, n, &out)
	return out, nil
}

// Count returns the number of members.
func (c *TreapCache) Count(ctx context.Context) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byID)
}

// Reload atomically replaces the whole cache content with members.
func (c *TreapCache) Reload(ctx context.Context, members []Member) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		metrics.RecordErrorByComponent("cache", "closed")
		return ErrClosed
	}

	var root *node
	byID := make(map[int64]int64, len(members))
	for _, m := range members {
		if _, ok := byID[m.UserID]; ok {
			root = deleteNode(root, m.UserID, byID[m.UserID])
		}
		byID[m.UserID] = m.Points
		root = insert(root, m.UserID, m.Points, c.rnd.Uint64())
	}
	c.root = root
	c.byID = byID

	metrics.RecordCacheReload()
	metrics.UpdateCacheSize(len(c.byID))
	return nil
}

// Close stops the metrics updater. Subsequent operations return ErrClosed.
func (c *TreapCache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	close(c.stopChan)
	c.wg.Wait()
	return nil
}

// startMetricsUpdater starts a background goroutine that refreshes the
// cache size gauge at the configured interval.
func (c *TreapCache) startMetricsUpdater(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(c.metricsInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-c.stopChan:
				return
			case <-ticker.C:
				c.mu.RLock()
				n := len(c.byID)
				c.mu.RUnlock()
				metrics.UpdateCacheSize(n)
			}
		}
	}()
}
