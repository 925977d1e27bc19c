package store

import "errors"

// Sentinel kinds for durable store errors.
var (
	ErrNotFound = errors.New("user not found")
	ErrNoIDs    = errors.New("empty id list")
)
