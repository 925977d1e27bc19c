// Package model contains domain models passed between layers.
package model

import (
	"strings"
	"time"
)

// User mirrors a row of the durable score store. TotalPoint is the
// authoritative cumulative point total; DailyRank is written only by the
// rank recomputation job and is nil until the first pass completes.
type User struct {
	ID             int64
	Name           string
	Gender         string
	Age            int
	ProfileImage   string
	MembershipTier string
	TotalPoint     int64
	DailyRank      *int
	RivalID        *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// MaskedName returns the display name with everything after the first
// character replaced by '*'. Names shorter than two characters are returned
// unchanged.
func (u User) MaskedName() string {
	if len([]rune(u.Name)) < 2 {
		return u.Name
	}
	r := []rune(u.Name)
	return string(r[0]) + strings.Repeat("*", len(r)-1)
}

// AgeBucket returns the decade bucket for the user's age (27 -> 20).
// Zero means the age is unknown.
func (u User) AgeBucket() int {
	if u.Age <= 0 {
		return 0
	}
	return u.Age / 10 * 10
}

// Member is the id->points pair held by the order-statistics cache.
// The cache carries no other attribute; profile data always comes from the
// durable store.
type Member struct {
	UserID int64
	Points int64
}

// Filter restricts a ranking query to a demographic slice. Zero values mean
// "no constraint" for the respective dimension.
type Filter struct {
	Gender    string
	AgeBucket int
}

// IsZero reports whether the filter constrains nothing.
func (f Filter) IsZero() bool {
	return f.Gender == "" && f.AgeBucket == 0
}

// PointEvent is a point-changing activity submitted by upstream sources
// (level tests, study sessions, payments). EventID makes retries idempotent.
type PointEvent struct {
	EventID  string
	UserID   int64
	Activity string // activity category, e.g. "level_test", "payment"
	Amount   float64
	TS       time.Time
}

// ScoreUpdate is the write-through payload applied to the cache after the
// durable store already committed the new total.
type ScoreUpdate struct {
	UserID   int64
	NewTotal int64
}
