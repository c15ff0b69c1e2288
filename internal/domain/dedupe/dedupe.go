// Package dedupe tracks already-submitted play ids so resubmitting a play
// is an acknowledged no-op instead of a double computation.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"
)

// Deduper records seen play ids for at-most-once processing.
type Deduper interface {
	// SeenAndRecord atomically checks whether id was seen and records it if
	// not. Returns true if id was already seen.
	SeenAndRecord(ctx context.Context, id string) bool

	// Forget removes an id so it can be submitted again. Used when a play
	// was recorded but never made it into the queue.
	Forget(ctx context.Context, id string)

	Size() int64
}

// tracker is the in-memory Deduper. In bounded mode it evicts the oldest
// ids first, using a lazily compacted FIFO order slice; forgotten ids leave
// stale order entries that eviction skips.
type tracker struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int // 0 or negative means unbounded
	size    atomic.Int64
}

// NewTracker creates an in-memory Deduper with configuration options.
func NewTracker(opts ...Option) Deduper {
	t := &tracker{
		maxSize: 50000,
		seen:    make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *tracker) SeenAndRecord(_ context.Context, id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; ok {
		return true
	}

	if t.maxSize > 0 {
		for len(t.seen) >= t.maxSize {
			t.evictOldest()
		}
		t.order = append(t.order, id)
		t.maybeCompact()
	}
	t.seen[id] = struct{}{}
	t.size.Add(1)
	return false
}

func (t *tracker) Forget(_ context.Context, id string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.seen[id]; !ok {
		return
	}
	// The order entry stays behind as a stale marker; eviction and
	// compaction skip it.
	delete(t.seen, id)
	t.size.Add(-1)
}

func (t *tracker) Size() int64 {
	return t.size.Load()
}

// evictOldest drops the oldest live id. Must hold t.mu.
func (t *tracker) evictOldest() {
	for len(t.order) > 0 {
		id := t.order[0]
		t.order = t.order[1:]
		if _, ok := t.seen[id]; ok {
			delete(t.seen, id)
			t.size.Add(-1)
			return
		}
	}
}

// maybeCompact rebuilds the order slice once stale markers dominate it.
// Must hold t.mu.
func (t *tracker) maybeCompact() {
	if t.maxSize <= 0 || len(t.order) <= 2*t.maxSize {
		return
	}
	live := make([]string, 0, len(t.seen))
	for _, id := range t.order {
		if _, ok := t.seen[id]; ok {
			live = append(live, id)
		}
	}
	t.order = live
}
