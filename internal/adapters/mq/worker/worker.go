// Package worker drains the play queue through the computation engine and
// persists the outcome, one play per dequeue.
package worker

import (
	"context"
	"fmt"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/logger"
	"github.com/okian/rai/pkg/metrics"
)

// Default worker configuration constants.
const (
	defaultWorkerMultiplier = 4 // multiplier for runtime.NumCPU()
	metricsUpdateInterval   = 5 * time.Second
	workerShutdownTimeout   = 5 * time.Second
	poolShutdownTimeout     = 30 * time.Second
)

// Play is what workers read off the queue.
type Play = model.Play

// Processor runs the per-play computation. A play either yields results or
// an omission, never both.
type Processor interface {
	Process(play model.Play) ([]model.Result, *model.Omission)
}

// Sink persists computed results and omission records.
type Sink interface {
	PutResults(ctx context.Context, results []model.Result) error
	MarkOmitted(ctx context.Context, omission model.Omission) error
}

// Queue defines how workers receive plays.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Play
}

// Worker processes plays until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown gracefully stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker over an in-process queue.
type InMemoryWorker struct {
	queue     Queue
	processor Processor
	sink      Sink
	name      string

	shutdown chan struct{}
	done     chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker with configuration options.
func NewInMemoryWorker(queue Queue, processor Processor, sink Sink, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:     queue,
		processor: processor,
		sink:      sink,
		name:      "worker",
		shutdown:  make(chan struct{}),
		done:      make(chan struct{}),
		logger:    logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	plays := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case play, ok := <-plays:
			if !ok {
				return
			}
			if err := w.processPlay(ctx, play); err != nil {
				w.logger.Error(ctx, "error processing play", logger.Error(err))
			}
		}
	}
}

// Shutdown gracefully stops the worker.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	close(w.shutdown)

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// processPlay runs one play through the engine and persists the outcome.
// A computation failure on one play never touches any other play.
func (w *InMemoryWorker) processPlay(ctx context.Context, play model.Play) error {
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	scoreStart := time.Now()
	results, omission := w.processor.Process(play)
	metrics.RecordScoringLatency(float64(time.Since(scoreStart).Milliseconds()))

	if omission != nil {
		metrics.RecordPlayOmitted(omission.Reason)
		w.logger.Warn(ctx, "play omitted",
			logger.String("playID", omission.PlayID),
			logger.String("reason", omission.Reason),
		)
		if err := w.sink.MarkOmitted(ctx, *omission); err != nil {
			metrics.RecordWorkerError()
			metrics.RecordErrorByComponent("worker", "omission_store_error")
			return fmt.Errorf("recording omission for play %s: %w", omission.PlayID, err)
		}
		return nil
	}

	if err := w.sink.PutResults(ctx, results); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "result_store_error")
		w.logger.Error(ctx, "storing results failed",
			logger.String("playID", play.PlayID),
			logger.Error(err),
		)
		return fmt.Errorf("storing results for play %s: %w", play.PlayID, err)
	}

	metrics.RecordPlayProcessed()
	for i := range results {
		metrics.RecordAgentScored()
		metrics.RecordCompositeScore(results[i].Composite)
		for _, warn := range results[i].Warnings {
			metrics.RecordAgentWarning(string(warn))
		}
	}
	return nil
}

// Pool manages multiple workers over a shared queue.
type Pool struct {
	workers   []*InMemoryWorker
	queue     Queue
	processor Processor
	sink      Sink

	shutdown chan struct{}
	done     chan struct{}

	processedCount    atomic.Int64
	lastProcessedTime time.Time

	logger logger.Logger
}

// NewPool creates a worker pool. A non-positive count sizes the pool from
// the CPU count.
func NewPool(workerCount int, queue Queue, processor Processor, sink Sink) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU() * defaultWorkerMultiplier
	}

	pool := &Pool{
		workers:           make([]*InMemoryWorker, workerCount),
		queue:             queue,
		processor:         processor,
		sink:              sink,
		shutdown:          make(chan struct{}),
		done:              make(chan struct{}),
		lastProcessedTime: time.Now(),
		logger:            logger.Get().Named("worker-pool"),
	}

	for i := 0; i < workerCount; i++ {
		pool.workers[i] = NewInMemoryWorker(
			queue,
			processor,
			sink,
			WithName("worker-"+strconv.Itoa(i)),
		)
	}

	metrics.UpdateWorkerActiveCount(workerCount)
	metrics.UpdateWorkerPlaysPerSecond(0.0)

	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
	go p.runMetricsUpdater(ctx)
}

func (p *Pool) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(metricsUpdateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.shutdown:
			return
		case <-ticker.C:
			p.updateThroughput()
		}
	}
}

func (p *Pool) updateThroughput() {
	now := time.Now()
	elapsed := now.Sub(p.lastProcessedTime).Seconds()
	if elapsed > 0 {
		metrics.UpdateWorkerPlaysPerSecond(float64(p.processedCount.Swap(0)) / elapsed)
	}
	p.lastProcessedTime = now
}

// RecordProcessedPlay increments the throughput counter.
func (p *Pool) RecordProcessedPlay() {
	p.processedCount.Add(1)
}

// Shutdown closes the queue and waits for every worker to drain.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	close(p.shutdown)

	shutdownCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-shutdownCtx.Done():
			p.logger.Warn(ctx, "worker shutdown timed out", logger.Int("worker_id", i))
		}
	}
	return nil
}
