package cache

import "errors"

// Sentinel kinds for cache errors.
var (
	ErrNotFound     = errors.New("member not found")
	ErrInvalidLimit = errors.New("invalid top-k limit")
	ErrClosed       = errors.New("cache closed")
)
