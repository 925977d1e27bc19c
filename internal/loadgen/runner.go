// Package loadgen generates random point events and fires them at a running
// service, then reads the top window back to confirm the pipeline applied
// them. Built for load testing and local smoke runs, not correctness proofs.
package loadgen

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/ladder/pkg/logger"
)

// Run executes a full load pass: generate, submit, read back.
func Run(ctx context.Context, cfg *Config) error {
	log := logger.Get().Named("loadgen")
	stats := &Stats{StartTime: time.Now()}

	if cfg.NumEvents < 1 || cfg.NumUsers < 1 || cfg.Workers < 1 {
		return fmt.Errorf("events, users and workers must all be positive")
	}

	log.Info(ctx, "starting load run",
		logger.String("url", cfg.BaseURL),
		logger.Int("events", cfg.NumEvents),
		logger.Int("users", cfg.NumUsers),
		logger.Int("workers", cfg.Workers),
	)

	events := generateEvents(cfg, stats)
	submitEvents(ctx, cfg, events, stats)

	rankings, err := fetchRankings(ctx, cfg)
	if err != nil {
		log.Warn(ctx, "could not read back rankings", logger.Error(err))
	} else {
		stats.WindowEntries = len(rankings.Rankings)
	}

	stats.Duration = time.Since(stats.StartTime)
	logSummary(ctx, log, stats)

	if stats.EventsFailed > 0 {
		return fmt.Errorf("%d of %d events failed", stats.EventsFailed, stats.EventsSubmitted)
	}
	return nil
}

func logSummary(ctx context.Context, log logger.Logger, stats *Stats) {
	rate := 0.0
	if secs := stats.Duration.Seconds(); secs > 0 {
		rate = float64(stats.EventsSubmitted) / secs
	}

	log.Info(ctx, "load run finished",
		logger.Int("generated", stats.EventsGenerated),
		logger.Int("submitted", stats.EventsSubmitted),
		logger.Int("accepted", stats.EventsSuccessful),
		logger.Int("duplicates", stats.EventsDuplicate),
		logger.Int("throttled", stats.EventsThrottled),
		logger.Int("failed", stats.EventsFailed),
		logger.Int("window_entries", stats.WindowEntries),
		logger.Duration("elapsed", stats.Duration),
		logger.Float64("events_per_second", rate),
	)
}
