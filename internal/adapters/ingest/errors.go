package ingest

import "errors"

// Sentinel kinds for feed parsing failures.
var (
	ErrMissingColumn = errors.New("missing required column")
	ErrBadRow        = errors.New("malformed row")
)
