package service

import "errors"

// Sentinel errors surfaced to the transport layer.
var (
	// ErrNotStarted is returned by operations invoked before Start.
	ErrNotStarted = errors.New("service not started")

	// ErrDuplicateEvent marks a point event whose id was already processed.
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrBackpressure marks an event rejected because the update queue is full.
	ErrBackpressure = errors.New("update queue full")

	// ErrUserNotFound marks a request for a user the store does not know.
	ErrUserNotFound = errors.New("user not found")
)
