package synth

import "time"

// HTTP status code constants.
const (
	StatusOK       = 200
	StatusAccepted = 202
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	ProcessingDelay      = 5 * time.Second
	PercentageMultiplier = 100
)

// Generation defaults.
const (
	DefaultFrames   = 30  // samples per trajectory
	DefaultInterval = 0.1 // seconds between samples
)
