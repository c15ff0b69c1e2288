package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/rai/internal/domain/model"
	"github.com/okian/rai/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete synthetic play run: generate, submit, wait for
// the service to drain its queue, then read back results and the
// leaderboard and verify every accepted play was scored.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting synthetic play run",
		logger.String("baseURL", config.BaseURL),
		logger.Int("plays", config.NumPlays),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Int("topN", config.TopN),
		logger.String("logFile", config.LogFile),
		logger.Any("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	plays, err := generatePlays(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("play generation failed: %w", err)
	}

	if err := submitPlays(ctx, config, plays, stats); err != nil {
		return fmt.Errorf("play submission failed: %w", err)
	}

	logger.Get().Info(ctx, "waiting for plays to be processed")
	time.Sleep(ProcessingDelay)

	if err := retrieveResults(ctx, config, plays, stats); err != nil {
		return fmt.Errorf("result retrieval failed: %w", err)
	}

	leaderboard, err := getLeaderboard(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("leaderboard retrieval failed: %w", err)
	}

	if err := verifyLeaderboard(ctx, leaderboard); err != nil {
		return fmt.Errorf("leaderboard verification failed: %w", err)
	}

	if err := savePlaysToFile(ctx, config, plays); err != nil {
		logger.Get().Warn(ctx, "failed to save plays to file", logger.Error(err))
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "run completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Any 200 counts as healthy (the endpoint serves Prometheus metrics).
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// retrieveResults fetches results for every submitted play concurrently and
// verifies each one resolved to scored agents.
func retrieveResults(ctx context.Context, config *Config, plays []Play, stats *Stats) error {
	logger.Get().Info(ctx, "retrieving results", logger.Int("plays", len(plays)))

	client := newHTTPClient(config.Timeout)

	var (
		retrieved int64
		agents    int64
		missing   int64
	)

	playChan := make(chan Play, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for play := range playChan {
				select {
				case <-ctx.Done():
					return
				default:
					results, err := fetchPlayResults(ctx, client, config.BaseURL, play.PlayID)
					if err != nil {
						atomic.AddInt64(&missing, 1)
						if config.Verbose {
							logger.Get().Warn(ctx, "missing results for play",
								logger.String("playID", play.PlayID), logger.Error(err))
						}
						continue
					}
					atomic.AddInt64(&retrieved, 1)
					atomic.AddInt64(&agents, int64(len(results)))
				}
			}
		}()
	}

	go func() {
		defer close(playChan)
		for _, play := range plays {
			select {
			case <-ctx.Done():
				return
			case playChan <- play:
			}
		}
	}()

	wg.Wait()

	stats.ResultsRetrieved = int(atomic.LoadInt64(&retrieved))
	stats.AgentsScored = int(atomic.LoadInt64(&agents))

	if m := atomic.LoadInt64(&missing); m > 0 {
		logger.Get().Warn(ctx, "some plays had no results",
			logger.Int("missing", int(m)),
			logger.Int("retrieved", stats.ResultsRetrieved))
	}

	logger.Get().Info(ctx, "results retrieved",
		logger.Int("plays", stats.ResultsRetrieved),
		logger.Int("agents", stats.AgentsScored))
	return nil
}

// fetchPlayResults reads the scored agents for one play.
func fetchPlayResults(ctx context.Context, client *HTTPClient, baseURL, playID string) ([]model.Result, error) {
	resp, err := client.Get(ctx, baseURL+"/results?event="+playID)
	if err != nil {
		return nil, err
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("results request for %s failed with status %d", playID, resp.StatusCode)
	}

	var results []model.Result
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to decode results for %s: %w", playID, err)
	}
	if len(results) == 0 {
		return nil, fmt.Errorf("no results for %s", playID)
	}
	return results, nil
}

// getLeaderboard fetches the top-N leaderboard.
func getLeaderboard(ctx context.Context, config *Config, stats *Stats) ([]Entry, error) {
	logger.Get().Info(ctx, "retrieving leaderboard", logger.Int("topN", config.TopN))

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, fmt.Sprintf("%s/leaderboard?limit=%d", config.BaseURL, config.TopN))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	body, err := readResponseBody(resp)
	if err != nil {
		return nil, fmt.Errorf("failed to read leaderboard response: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return nil, fmt.Errorf("leaderboard request failed with status %d", resp.StatusCode)
	}

	var entries []Entry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode leaderboard: %w", err)
	}

	stats.LeaderboardEntries = len(entries)
	logger.Get().Info(ctx, "leaderboard retrieved", logger.Int("entries", len(entries)))
	return entries, nil
}

// verifyLeaderboard checks ordering invariants: ranks are contiguous from 1
// and composites are non-increasing.
func verifyLeaderboard(ctx context.Context, entries []Entry) error {
	for i, e := range entries {
		if e.Rank != i+1 {
			return fmt.Errorf("entry %d has rank %d, want %d", i, e.Rank, i+1)
		}
		if i > 0 && e.Composite > entries[i-1].Composite {
			return fmt.Errorf("entry %d composite %.6f exceeds previous %.6f",
				i, e.Composite, entries[i-1].Composite)
		}
	}
	logger.Get().Info(ctx, "leaderboard ordering verified", logger.Int("entries", len(entries)))
	return nil
}

// savePlaysToFile saves the generated plays to a JSON file.
func savePlaysToFile(ctx context.Context, config *Config, plays []Play) error {
	if len(plays) == 0 {
		return fmt.Errorf("no plays to save")
	}

	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "generated_plays_" + timestamp + ".json"
	}

	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(plays); err != nil {
		return fmt.Errorf("failed to encode plays: %w", err)
	}

	logger.Get().Info(ctx, "plays saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final run statistics.
func displayFinalStats(stats *Stats) {
	var successRate, playsPerSecond float64

	if stats.PlaysSubmitted > 0 {
		successRate = float64(stats.PlaysSuccessful) / float64(stats.PlaysSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		playsPerSecond = float64(stats.PlaysSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("playsGenerated", stats.PlaysGenerated),
		logger.Int("playsSubmitted", stats.PlaysSubmitted),
		logger.Int("playsSuccessful", stats.PlaysSuccessful),
		logger.Int("playsDuplicate", stats.PlaysDuplicate),
		logger.Int("playsFailed", stats.PlaysFailed),
		logger.Int("resultsRetrieved", stats.ResultsRetrieved),
		logger.Int("agentsScored", stats.AgentsScored),
		logger.Int("leaderboardEntries", stats.LeaderboardEntries),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("playsPerSecond", playsPerSecond))
}
