// Package store provides the durable Postgres score store. It is the system
// of record for point totals, persisted ranks and profiles; the in-memory
// cache is reconciled against it and never the other way around.
package store

import (
	"context"

	"github.com/okian/ladder/internal/domain/model"
)

// Store provides read/write access to the durable ranking state.
type Store interface {
	// CreateUser inserts a new user with a zero point total and returns its id.
	CreateUser(ctx context.Context, u model.User) (int64, error)

	// FindByID returns a single user or ErrNotFound.
	FindByID(ctx context.Context, id int64) (model.User, error)

	// FindByIDs returns the users matching ids in one batched query. Missing
	// ids are silently absent from the result; the order is unspecified.
	FindByIDs(ctx context.Context, ids []int64) ([]model.User, error)

	// ListByFilter returns users matching the demographic filter, ordered by
	// total_point DESC, id ASC.
	ListByFilter(ctx context.Context, f model.Filter) ([]model.User, error)

	// ListScoresDesc returns every user's id and point total ordered by
	// total_point DESC, id ASC. Feeds rank recomputation and cache reloads.
	ListScoresDesc(ctx context.Context) ([]model.Member, error)

	// UpdateRanks writes contiguous daily ranks 1..N for orderedIDs under a
	// single transaction. This is the only writer of the daily_rank column.
	UpdateRanks(ctx context.Context, orderedIDs []int64) error

	// AddPoints atomically adds delta to a user's total and returns the new
	// total. Negative deltas are clamped at zero.
	AddPoints(ctx context.Context, id int64, delta int64) (int64, error)

	// SetRival assigns or clears (nil) the user's rival.
	SetRival(ctx context.Context, id int64, rivalID *int64) error

	// ResetAllPoints zeroes every user's point total.
	ResetAllPoints(ctx context.Context) error

	// CountUsers returns the population size.
	CountUsers(ctx context.Context) (int, error)

	// Close releases the underlying connection pool.
	Close() error
}
