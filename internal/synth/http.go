package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

// HTTPClient wraps http.Client with a request timeout.
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// submitPlays submits plays concurrently using a worker pool.
func submitPlays(ctx context.Context, config *Config, plays []Play, stats *Stats) error {
	log.Printf("submitting %d plays with %d workers...", len(plays), config.Workers)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/plays"

	var (
		successful int64
		duplicate  int64
		failed     int64
		submitted  int64
	)

	var lastReport time.Time
	reportInterval := 1 * time.Second

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
					result := submitSinglePlay(ctx, client, url, play)

					atomic.AddInt64(&submitted, 1)
					switch result {
					case "success":
						atomic.AddInt64(&successful, 1)
					case "duplicate":
						atomic.AddInt64(&duplicate, 1)
					case "failed":
						atomic.AddInt64(&failed, 1)
					}

					if time.Since(lastReport) >= reportInterval {
						lastReport = time.Now()
						total := atomic.LoadInt64(&submitted)
						succ := atomic.LoadInt64(&successful)
						dup := atomic.LoadInt64(&duplicate)
						fail := atomic.LoadInt64(&failed)

						if config.Verbose {
							log.Printf("progress: %d/%d submitted (success: %d, duplicate: %d, failed: %d)",
								total, len(plays), succ, dup, fail)
						} else {
							fmt.Printf("\rsubmitted: %d/%d (success: %d, duplicate: %d, failed: %d)",
								total, len(plays), succ, dup, fail)
						}
					}
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

	if !config.Verbose {
		fmt.Println()
	}

	stats.PlaysSubmitted = int(atomic.LoadInt64(&submitted))
	stats.PlaysSuccessful = int(atomic.LoadInt64(&successful))
	stats.PlaysDuplicate = int(atomic.LoadInt64(&duplicate))
	stats.PlaysFailed = int(atomic.LoadInt64(&failed))

	log.Printf("play submission completed: successful=%d duplicate=%d failed=%d",
		stats.PlaysSuccessful, stats.PlaysDuplicate, stats.PlaysFailed)

	return nil
}

// submitSinglePlay submits one play and classifies the outcome.
func submitSinglePlay(ctx context.Context, client *HTTPClient, url string, play Play) string {
	resp, err := client.Post(ctx, url, play)
	if err != nil {
		return "failed"
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return "failed"
	}

	switch resp.StatusCode {
	case StatusAccepted:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Status == "accepted" {
			return "success"
		}
		return "success"
	case StatusOK:
		var ack AckResponse
		if err := json.Unmarshal(body, &ack); err == nil && ack.Duplicate {
			return "duplicate"
		}
		return "duplicate"
	default:
		return "failed"
	}
}
