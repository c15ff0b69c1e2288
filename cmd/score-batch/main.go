// Command score-batch scores tracking CSV files offline: it loads plays
// from the configured tracking and context files, runs the computation
// engine over them with a bounded worker group, and writes one row per
// (play, agent) to the output CSV. Malformed plays are logged and skipped,
// never fatal to the batch.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/okian/rai/internal/adapters/ingest"
	app "github.com/okian/rai/internal/app"
	"github.com/okian/rai/internal/config"
	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/logger"
	"github.com/okian/rai/pkg/metrics"
)

const floatPrecision = 6

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		logger.Get().Error(ctx, "batch failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	log := logger.Get().Named("batch")

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		_ = logger.SetLevelString("info")
	}
	if len(cfg.TrackingFiles) == 0 {
		return fmt.Errorf("no tracking files configured (set RAI_TRACKING_FILES or tracking_files)")
	}
	if cfg.ContextFile == "" {
		return fmt.Errorf("no context file configured (set RAI_CONTEXT_FILE or context_file)")
	}

	runID := uuid.New().String()
	log.Info(ctx, "starting batch run",
		logger.String("runID", runID),
		logger.Int("trackingFiles", len(cfg.TrackingFiles)),
		logger.String("contextFile", cfg.ContextFile),
		logger.String("outputFile", cfg.OutputFile),
		logger.Int("workers", cfg.WorkerCount),
	)

	loader := ingest.NewLoader(ingest.WithInterval(cfg.Interval))
	plays, err := loader.LoadPlays(ctx, cfg.TrackingFiles, cfg.ContextFile)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	log.Info(ctx, "plays loaded", logger.Int("plays", len(plays)))

	engine := app.EngineFromConfig(cfg)

	var (
		mu        sync.Mutex
		results   []model.Result
		omissions []model.Omission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.WorkerCount)
	for _, play := range plays {
		play := play
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rows, omission := engine.Process(play)
			mu.Lock()
			defer mu.Unlock()
			if omission != nil {
				omissions = append(omissions, *omission)
				metrics.RecordPlayOmitted(omission.Reason)
				return nil
			}
			results = append(results, rows...)
			metrics.RecordPlayProcessed()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	// Deterministic output order regardless of worker scheduling.
	sort.Slice(results, func(i, j int) bool {
		if results[i].PlayID != results[j].PlayID {
			return results[i].PlayID < results[j].PlayID
		}
		return results[i].AgentID < results[j].AgentID
	})

	for _, o := range omissions {
		log.Warn(ctx, "play omitted",
			logger.String("playID", o.PlayID),
			logger.String("reason", o.Reason),
		)
	}

	if err := writeResults(cfg.OutputFile, results); err != nil {
		return fmt.Errorf("failed to write results: %w", err)
	}

	log.Info(ctx, "batch run completed",
		logger.String("runID", runID),
		logger.Int("plays", len(plays)),
		logger.Int("agentsScored", len(results)),
		logger.Int("omissions", len(omissions)),
		logger.String("outputFile", cfg.OutputFile),
	)
	return nil
}

// writeResults writes one CSV row per scored (play, agent).
func writeResults(path string, results []model.Result) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	w := csv.NewWriter(file)
	header := []string{
		"play_id", "agent_id", "role",
		"reaction_delay", "path_efficiency", "break_quality",
		"tracking_correlation", "relational_delta",
		"norm_reaction_delay", "norm_path_efficiency", "norm_break_quality",
		"norm_tracking_correlation", "norm_relational_delta",
		"composite", "warnings",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for _, r := range results {
		row := []string{
			r.PlayID, r.AgentID, string(r.Role),
			ftoa(r.Raw.ReactionDelay), ftoa(r.Raw.PathEfficiency), ftoa(r.Raw.BreakQuality),
			ftoa(r.Raw.TrackingCorrelation), ftoa(r.Raw.RelationalDelta),
			ftoa(r.Normalized.ReactionDelay), ftoa(r.Normalized.PathEfficiency), ftoa(r.Normalized.BreakQuality),
			ftoa(r.Normalized.TrackingCorrelation), ftoa(r.Normalized.RelationalDelta),
			ftoa(r.Composite), joinWarnings(r.Warnings),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s/%s: %w", r.PlayID, r.AgentID, err)
		}
	}

	w.Flush()
	return w.Error()
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'f', floatPrecision, 64)
}

func joinWarnings(warnings []model.Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	parts := make([]string, len(warnings))
	for i, w := range warnings {
		parts[i] = string(w)
	}
	return strings.Join(parts, ";")
}
