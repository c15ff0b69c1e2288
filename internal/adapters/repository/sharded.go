package repository

import (
	"context"
	"hash/fnv"
	"sort"
	"sync"
	"time"

	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/metrics"
)

// Default store configuration constants.
const (
	defaultShardCount = 16
)

// best tracks an agent's highest composite and where it was earned.
type best struct {
	playID    string
	role      model.Role
	composite float64
}

// shard holds the agent-keyed state for one hash slice of the agent space.
type shard struct {
	mu      sync.RWMutex
	byAgent map[string][]model.Result
	best    map[string]best
}

// ShardedStore is the in-memory Store. Agent state is sharded by agent id
// hash so concurrent writers rarely contend; the play index and omission
// log are separate, coarser structures.
//
// Ranking order is composite DESC, then agent id ASC, so ranks are
// deterministic under ties.
type ShardedStore struct {
	shardCount int
	shards     []*shard

	playMu sync.RWMutex
	byPlay map[string][]model.Result

	omMu      sync.RWMutex
	omissions []model.Omission

	resultCount int64 // guarded by playMu
}

// NewShardedStore creates a store with configuration options.
func NewShardedStore(opts ...Option) *ShardedStore {
	s := &ShardedStore{
		shardCount: defaultShardCount,
		byPlay:     make(map[string][]model.Result),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.shards = make([]*shard, s.shardCount)
	for i := range s.shards {
		s.shards[i] = &shard{
			byAgent: make(map[string][]model.Result),
			best:    make(map[string]best),
		}
	}

	metrics.UpdateRepositoryShardCount(s.shardCount)
	metrics.UpdateRepositoryResultsTotal(0)
	metrics.UpdateRepositoryAgentsTotal(0)

	return s
}

func (s *ShardedStore) shardFor(agentID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(agentID))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// PutResults records one play's outcome. Replacing an existing
// (play, agent) row keeps replays idempotent.
func (s *ShardedStore) PutResults(_ context.Context, results []model.Result) error {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryUpdateLatency(float64(time.Since(start).Milliseconds()))
	}()

	for i := range results {
		s.putOne(results[i])
	}
	s.publishTotals()
	return nil
}

func (s *ShardedStore) putOne(r model.Result) {
	sh := s.shardFor(r.AgentID)
	sh.mu.Lock()
	replaced := replaceOrAppend(sh.byAgent, r.AgentID, r, matchPlay)
	if b, ok := sh.best[r.AgentID]; !ok || r.Composite > b.composite {
		sh.best[r.AgentID] = best{playID: r.PlayID, role: r.Role, composite: r.Composite}
	} else if ok && b.playID == r.PlayID && replaced {
		// The replaced row was the best one; recompute from scratch.
		sh.best[r.AgentID] = recomputeBest(sh.byAgent[r.AgentID])
	}
	sh.mu.Unlock()

	s.playMu.Lock()
	if !replaceOrAppend(s.byPlay, r.PlayID, r, matchAgent) {
		s.resultCount++
	}
	s.playMu.Unlock()
}

func matchPlay(a, b model.Result) bool  { return a.PlayID == b.PlayID }
func matchAgent(a, b model.Result) bool { return a.AgentID == b.AgentID }

// replaceOrAppend swaps in r over the first row matching it, or appends.
// Reports whether a replacement happened.
func replaceOrAppend(m map[string][]model.Result, key string, r model.Result, match func(a, b model.Result) bool) bool {
	rows := m[key]
	for i := range rows {
		if match(rows[i], r) {
			rows[i] = r
			return true
		}
	}
	m[key] = append(rows, r)
	return false
}

func recomputeBest(rows []model.Result) best {
	var b best
	for i, r := range rows {
		if i == 0 || r.Composite > b.composite {
			b = best{playID: r.PlayID, role: r.Role, composite: r.Composite}
		}
	}
	return b
}

// MarkOmitted appends to the omission log.
func (s *ShardedStore) MarkOmitted(_ context.Context, omission model.Omission) error {
	s.omMu.Lock()
	s.omissions = append(s.omissions, omission)
	s.omMu.Unlock()
	return nil
}

// ResultsByPlay returns every agent result for one play.
func (s *ShardedStore) ResultsByPlay(_ context.Context, playID string) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	s.playMu.RLock()
	rows, ok := s.byPlay[playID]
	out := append([]model.Result(nil), rows...)
	s.playMu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return out, nil
}

// ResultsByAgent returns every play result for one agent.
func (s *ShardedStore) ResultsByAgent(_ context.Context, agentID string) ([]model.Result, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	sh := s.shardFor(agentID)
	sh.mu.RLock()
	rows, ok := sh.byAgent[agentID]
	out := append([]model.Result(nil), rows...)
	sh.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return out, nil
}

// Omissions returns a copy of the omission log.
func (s *ShardedStore) Omissions(_ context.Context) []model.Omission {
	s.omMu.RLock()
	defer s.omMu.RUnlock()
	return append([]model.Omission(nil), s.omissions...)
}

// Rank returns the agent's ranking row.
func (s *ShardedStore) Rank(ctx context.Context, agentID string) (Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	entries := s.ranking()
	for _, e := range entries {
		if e.AgentID == agentID {
			return e, nil
		}
	}
	return Entry{}, ErrNotFound
}

// TopN returns the best n agents.
func (s *ShardedStore) TopN(ctx context.Context, n int) ([]Entry, error) {
	start := time.Now()
	defer func() {
		metrics.RecordRepositoryQueryLatency(float64(time.Since(start).Milliseconds()))
	}()

	if n < 1 {
		return nil, ErrInvalidLimit
	}
	entries := s.ranking()
	if n < len(entries) {
		entries = entries[:n]
	}
	return entries, nil
}

// Count returns the number of distinct agents scored.
func (s *ShardedStore) Count(_ context.Context) int {
	total := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		total += len(sh.best)
		sh.mu.RUnlock()
	}
	return total
}

// ranking snapshots every agent's best and sorts it into rank order.
func (s *ShardedStore) ranking() []Entry {
	var entries []Entry
	for _, sh := range s.shards {
		sh.mu.RLock()
		for agentID, b := range sh.best {
			entries = append(entries, Entry{
				AgentID:   agentID,
				PlayID:    b.playID,
				Role:      b.role,
				Composite: b.composite,
			})
		}
		sh.mu.RUnlock()
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Composite != entries[j].Composite {
			return entries[i].Composite > entries[j].Composite
		}
		return entries[i].AgentID < entries[j].AgentID
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

func (s *ShardedStore) publishTotals() {
	s.playMu.RLock()
	metrics.UpdateRepositoryResultsTotal(int(s.resultCount))
	s.playMu.RUnlock()
	metrics.UpdateRepositoryAgentsTotal(s.Count(context.Background()))
}
