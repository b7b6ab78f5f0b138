// Package probe drives a running validator with generated cohorts and
// checks every scoring response against the scoring invariants.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/spotcheck/pkg/logger"
)

// ErrViolations is returned by Run when any response broke an invariant.
var ErrViolations = errors.New("scoring invariants violated")

// Run executes a complete probe and returns the collected statistics.
func Run(ctx context.Context, cfg *Config) (*Stats, error) {
	log := logger.Get().Named("probe")
	stats := &Stats{StartTime: time.Now()}

	log.Info(ctx, "starting validator probe",
		logger.String("baseURL", cfg.BaseURL),
		logger.Int("cohorts", cfg.Cohorts),
		logger.Int("miners", cfg.Miners),
		logger.Int("workers", cfg.Workers),
		logger.Duration("timeout", cfg.Timeout),
		logger.Int64("seed", cfg.Seed))

	client := NewClient(cfg.BaseURL, cfg.Timeout)
	if err := client.Health(ctx); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}
	log.Info(ctx, "service is healthy")

	cohorts := NewGenerator(cfg.Seed).Cohorts(cfg)
	stats.CohortsGenerated = len(cohorts)

	submitCohorts(ctx, cfg, client, cohorts, stats)

	if cfg.OutputFile != "" {
		if err := saveCohorts(ctx, cfg.OutputFile, cohorts); err != nil {
			log.Warn(ctx, "failed to save cohorts", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	if stats.Violations > 0 {
		return stats, fmt.Errorf("%d problems: %w", stats.Violations, ErrViolations)
	}
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("probe interrupted: %w", err)
	}
	return stats, nil
}

// saveCohorts writes the generated requests so a failing run can be replayed.
func saveCohorts(ctx context.Context, filename string, cohorts []Cohort) error {
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(cohorts, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cohorts: %w", err)
	}
	if err := os.WriteFile(filename, data, logFilePermission); err != nil {
		return fmt.Errorf("failed to write cohorts: %w", err)
	}
	logger.Get().Info(ctx, "cohorts saved to file", logger.String("filename", filename))
	return nil
}

func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, cohortsPerSecond float64
	if stats.CohortsSubmitted > 0 {
		successRate = float64(stats.CohortsScored) / float64(stats.CohortsSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		cohortsPerSecond = float64(stats.CohortsSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("cohortsGenerated", stats.CohortsGenerated),
		logger.Int("cohortsSubmitted", stats.CohortsSubmitted),
		logger.Int("cohortsScored", stats.CohortsScored),
		logger.Int("cohortsFailed", stats.CohortsFailed),
		logger.Int("minersPassed", stats.MinersPassed),
		logger.Int("minersRejected", stats.MinersRejected),
		logger.Int("violations", stats.Violations),
		logger.Duration("duration", stats.Duration),
		logger.Float64("successRate", successRate),
		logger.Float64("cohortsPerSecond", cohortsPerSecond))
}
