// Package cache defines the order-statistics cache interface and errors.
package cache

import "context"

// Member is an id->points pair held by the cache. The cache never holds
// profile attributes; callers enrich members from the durable store.
type Member struct {
	UserID int64
	Points int64
}

// Cache provides ordered access to the live ranking state. Implementations
// must be safe for concurrent use; every operation is atomic at the entry
// level, and last-write-wins on retried upserts.
type Cache interface {
	// Upsert inserts or repositions a member with the given point total.
	Upsert(ctx context.Context, userID int64, points int64) error

	// Rank returns the zero-based descending position of a member.
	// Returns ErrNotFound if the member is unknown.
	Rank(ctx context.Context, userID int64) (int, error)

	// Score returns the cached point total of a member.
	// Returns ErrNotFound if the member is unknown.
	Score(ctx context.Context, userID int64) (int64, error)

	// TopN returns the n highest-scored members in descending order.
	// Fewer members are returned when the population is smaller than n.
	TopN(ctx context.Context, n int) ([]Member, error)

	// Count returns the number of members tracked by the cache.
	Count(ctx context.Context) int

	// Reload atomically replaces the entire cache content. Used by the rank
	// recomputation job to repopulate a cold or stale cache.
	Reload(ctx context.Context, members []Member) error

	// Close releases background resources. Operations on a closed cache
	// return ErrClosed.
	Close() error
}
