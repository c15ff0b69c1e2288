package dedupe

// Option applies a configuration option to the tracker.
type Option func(*tracker)

// WithMaxSize bounds the number of ids kept in memory. Once full, the
// oldest ids are evicted first. A non-positive size means unbounded.
func WithMaxSize(maxSize int) Option {
	return func(t *tracker) {
		t.maxSize = maxSize
	}
}
