// Package loadgen drives randomized learner snapshots through a running
// service and checks every prediction against the response contract.
package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/alie/internal/domain/learner"
	"github.com/okian/alie/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete probe and returns its statistics. It fails with
// ErrContract when any response breaks the contract.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	applyDefaults(config)
	stats := newStats()

	logger.Get().Info(ctx, "starting probe",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, err
	}

	// Step 2: Generate snapshots
	snapshots, err := GenerateSnapshots(ctx, config.Requests, config.Workers)
	if err != nil {
		return stats, fmt.Errorf("snapshot generation failed: %w", err)
	}
	stats.Generated = len(snapshots)

	// Step 3: Submit and verify concurrently
	submitSnapshots(ctx, config, snapshots, stats)

	// Step 4: Save snapshots to file
	if config.OutputFile != "" {
		if err := saveSnapshotsToFile(ctx, config.OutputFile, snapshots); err != nil {
			logger.Get().Warn(ctx, "failed to save snapshots to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	if stats.ContractViolations > 0 {
		return stats, fmt.Errorf("%w: %d violations", ErrContract, stats.ContractViolations)
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	logger.Get().Info(ctx, "probe completed successfully")
	return stats, nil
}

func applyDefaults(config *Config) {
	if config.Requests <= 0 {
		config.Requests = DefaultRequests
	}
	if config.Workers <= 0 {
		config.Workers = DefaultWorkers
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
}

// checkServiceHealth verifies the service is running with its models loaded.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout, "")
	resp, err := client.Get(ctx, config.BaseURL+"/health")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}

	body, err := readResponseBody(resp)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}

	var h health
	if err := json.Unmarshal(body, &h); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if !h.ModelsLoaded {
		return fmt.Errorf("%w: status %s, models not loaded", ErrUnhealthy, h.Status)
	}

	logger.Get().Info(ctx, "service is healthy", logger.String("version", h.Version))
	return nil
}

// saveSnapshotsToFile writes the generated snapshots as a JSON array.
func saveSnapshotsToFile(ctx context.Context, filename string, snapshots []learner.Snapshot) error {
	if len(snapshots) == 0 {
		return fmt.Errorf("no snapshots to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(snapshots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}
	if err := os.WriteFile(filename, data, filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.Get().Info(ctx, "snapshots saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final probe statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	if stats.Submitted > 0 {
		successRate = float64(stats.Successful) / float64(stats.Submitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.Submitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("generated", stats.Generated),
		logger.Int("submitted", stats.Submitted),
		logger.Int("successful", stats.Successful),
		logger.Int("rejected", stats.Rejected),
		logger.Int("rateLimited", stats.RateLimited),
		logger.Int("failed", stats.Failed),
		logger.Int("contractViolations", stats.ContractViolations),
		logger.Int("weak", stats.Weak),
		logger.Any("actions", stats.Actions),
		logger.Any("difficulties", stats.Difficulties),
		logger.Float64("maxPredictionMs", stats.MaxPredictionMS),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
