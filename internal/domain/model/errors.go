package model

import "errors"

// Sentinel kinds for malformed play input. These are the only errors that
// omit a whole play's results; everything softer resolves to a warning.
var (
	ErrInvalidInterval   = errors.New("sampling interval must be positive")
	ErrNonMonotonicTime  = errors.New("non-monotonic time index")
	ErrIrregularInterval = errors.New("irregular sampling interval")
	ErrNoTrajectories    = errors.New("play has no trajectories")
	ErrMissingPlayID     = errors.New("play id is empty")
)
