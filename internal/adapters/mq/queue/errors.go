package queue

import "errors"

// Sentinel errors for queue lifecycle failures.
var (
	ErrDrainTimeout = errors.New("queue drain timed out")
)
