package synth

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/okian/rai/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "synth_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the synthetic play tool.
func ShowHelp() {
	os.Stdout.WriteString(`Synthetic Play Tool
===================

Generates plays with known kinematic shapes (straight runners, curved
routes, delayed reactors, shadow defenders) and submits them to a running
scoring service, then reads back results and the leaderboard.

Usage:
  go run cmd/synth-plays/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -plays int
        Number of plays to generate and submit (default 1000)
  -frames int
        Samples per trajectory (default 30)
  -top int
        Number of top entries to fetch from leaderboard (default 50)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated plays (default: generated_plays_TIMESTAMP.json)
  -log string
        Log file for run output (default: synth_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Run with default settings
  go run cmd/synth-plays/main.go

  # Run with custom parameters
  go run cmd/synth-plays/main.go -plays 5000 -workers 16 -url http://localhost:8080

  # Run with verbose output
  go run cmd/synth-plays/main.go -verbose -plays 1000
`)
}
