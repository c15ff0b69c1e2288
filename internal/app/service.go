// Package app wires the queue, workers, engine and store into one service
// implementing the dependencies the HTTP API needs.
package app

import (
	"context"
	"runtime"
	"sync"

	playqueue "github.com/okian/rai/internal/adapters/mq/queue"
	workerpool "github.com/okian/rai/internal/adapters/mq/worker"
	"github.com/okian/rai/internal/adapters/repository"
	"github.com/okian/rai/internal/domain/dedupe"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/internal/domain/pipeline"
	"github.com/okian/rai/pkg/logger"
	"github.com/okian/rai/pkg/metrics"
)

// Service owns the play intake path and the query surface over results.
type Service struct {
	mu sync.RWMutex

	store   repository.Store
	deduper dedupe.Deduper
	queue   playqueue.Queue
	engine  *pipeline.Engine
	pool    *workerpool.Pool

	workerCount int
	queueSize   int
	dedupeSize  int
	shardCount  int

	started bool

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of worker goroutines.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the play queue capacity.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the size of the play-id deduplication cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithShardCount sets the result store shard count.
func WithShardCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.shardCount = count
		}
	}
}

// WithEngine replaces the computation engine, carrying any tuned
// derivation and detection parameters.
func WithEngine(e *pipeline.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		workerCount: runtime.NumCPU() * 2,
		queueSize:   100000,
		dedupeSize:  50000,
		shardCount:  16,
		engine:      pipeline.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting reactivity service...")

	s.store = repository.NewShardedStore(
		repository.WithShardCount(s.shardCount),
	)
	s.deduper = dedupe.NewTracker(
		dedupe.WithMaxSize(s.dedupeSize),
	)
	s.queue = playqueue.NewInMemoryQueue(
		playqueue.WithCapacity(s.queueSize),
	)

	s.pool = workerpool.NewPool(s.workerCount, s.queue, s.engine, s.store)
	s.pool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "reactivity service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
	)
	return nil
}

// Stop gracefully shuts down the service, draining queued plays.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping reactivity service...")

	if s.pool != nil {
		_ = s.pool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "reactivity service stopped")
}

// Submit queues a play for asynchronous computation. A play id that was
// already accepted returns ErrDuplicatePlay; a saturated queue returns
// ErrQueueFull and leaves the id unrecorded so the caller may retry.
func (s *Service) Submit(ctx context.Context, play model.Play) error {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return ErrNotStarted
	}

	if play.PlayID == "" {
		return model.ErrMissingPlayID
	}

	if s.deduper.SeenAndRecord(ctx, play.PlayID) {
		metrics.RecordPlayDuplicate()
		s.logger.Debug(ctx, "duplicate play acknowledged",
			logger.String("playID", play.PlayID),
		)
		return ErrDuplicatePlay
	}

	if !s.queue.Enqueue(ctx, play) {
		// The play never entered the queue; forget it so a retry is not
		// misread as a duplicate.
		s.deduper.Forget(ctx, play.PlayID)
		return ErrQueueFull
	}
	return nil
}

// Results returns every agent result for one play.
func (s *Service) Results(ctx context.Context, playID string) ([]model.Result, error) {
	return s.store.ResultsByPlay(ctx, playID)
}

// AgentResults returns every play result for one agent.
func (s *Service) AgentResults(ctx context.Context, agentID string) ([]model.Result, error) {
	return s.store.ResultsByAgent(ctx, agentID)
}

// Omissions returns all recorded omissions.
func (s *Service) Omissions(ctx context.Context) []model.Omission {
	return s.store.Omissions(ctx)
}

// TopN returns the best n agents by best composite.
func (s *Service) TopN(ctx context.Context, n int) ([]repository.Entry, error) {
	return s.store.TopN(ctx, n)
}

// Rank returns the ranking row for one agent.
func (s *Service) Rank(ctx context.Context, agentID string) (repository.Entry, error) {
	return s.store.Rank(ctx, agentID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"queueSize":   s.queueSize,
		"dedupeSize":  s.dedupeSize,
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		agents := s.store.Count(ctx)
		stats["queueLength"] = queueLen
		stats["agentsScored"] = agents
		stats["omissions"] = len(s.store.Omissions(ctx))
		stats["dedupeEntries"] = s.deduper.Size()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateRepositoryAgentsTotal(agents)

		var mem runtime.MemStats
		runtime.ReadMemStats(&mem)
		metrics.UpdateSystemMemoryUsage(mem.Alloc)
		metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
	}
	return stats
}
