package app

import "errors"

// Sentinel kinds for submission failures.
var (
	ErrNotStarted    = errors.New("service not started")
	ErrDuplicatePlay = errors.New("play already submitted")
	ErrQueueFull     = errors.New("play queue full")
)
