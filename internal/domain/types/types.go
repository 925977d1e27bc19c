// Package types contains common types used across the application
package types

// Entry represents a single leaderboard row as returned to clients.
type Entry struct {
	Rank         int    `json:"rank"`
	UserID       int64  `json:"user_id"`
	MaskedName   string `json:"masked_name"`
	TotalPoint   int64  `json:"total_point"`
	AgeBucket    int    `json:"age_bucket"`
	ProfileImage string `json:"profile_image,omitempty"`
}

// Rankings is the full read model for a ranking query: the distinguished
// top three, the complete window, and the requesting user's own entry
// (nil when the requester is anonymous or has no recorded score).
type Rankings struct {
	Top3     []Entry `json:"top3"`
	Rankings []Entry `json:"rankings"`
	Me       *Entry  `json:"me"`
}

// RivalProfile is the profile slice exposed by the rival comparison.
type RivalProfile struct {
	UserID       int64  `json:"user_id"`
	Name         string `json:"name"`
	TotalPoint   int64  `json:"total_point"`
	ProfileImage string `json:"profile_image,omitempty"`
	Tier         string `json:"tier,omitempty"`
}

// RivalComparison is the outcome of comparing a user against their rival.
// PointGap is always non-negative and is zero exactly when HasRival is
// false (no rival assigned, or the rival no longer resolves).
type RivalComparison struct {
	HasRival     bool          `json:"has_rival"`
	MyProfile    RivalProfile  `json:"my_profile"`
	RivalProfile *RivalProfile `json:"rival_profile,omitempty"`
	PointGap     int64         `json:"point_gap"`
	Message      string        `json:"message"`
}
