package queue

import "errors"

// Sentinel kinds for queue intake failures.
var (
	ErrClosed = errors.New("queue closed")
	ErrFull   = errors.New("queue full")
)
