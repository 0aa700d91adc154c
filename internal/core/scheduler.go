package core

// scheduler.go runs the retention sweep for generated listings.
//
// Each sweep:
//  1. Deletes listings in the output directory older than the retention.
//  2. Deletes staged uploads and unfinished workbooks left behind by a
//     crash (older than one hour).
//  3. Prunes history entries older than the retention.
//
// Failures are logged and the next tick tries again.

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// staleStagingAge is how old a staged upload or unfinished workbook must
// be before a sweep treats it as abandoned. Live conversions finish far sooner.
const staleStagingAge = time.Hour

// RetentionConfig controls the sweeper.
type RetentionConfig struct {
	MaxAge   time.Duration // 0 keeps listings and history forever
	Interval time.Duration // how often to sweep (default: 1h)
}

// SweepResult reports what one sweep removed.
type SweepResult struct {
	Listings  int
	Staged    int
	TempFiles int
	History   int64
}

// StartRetentionSweeper sweeps immediately, then every Interval, until
// ctx is cancelled.
func (s *Service) StartRetentionSweeper(ctx context.Context, cfg RetentionConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	slog.Info("retention sweeper started",
		"max_age", cfg.MaxAge.String(),
		"interval", cfg.Interval.String(),
	)

	s.runSweep(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("retention sweeper stopped")
			return
		case <-ticker.C:
			s.runSweep(ctx, cfg)
		}
	}
}

func (s *Service) runSweep(ctx context.Context, cfg RetentionConfig) {
	start := time.Now()
	res := s.Sweep(ctx, cfg.MaxAge)
	slog.Info("retention sweep completed",
		"listings_removed", res.Listings,
		"staged_removed", res.Staged,
		"temp_removed", res.TempFiles,
		"history_pruned", res.History,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Sweep performs one retention pass.
func (s *Service) Sweep(ctx context.Context, maxAge time.Duration) SweepResult {
	now := s.now()
	var res SweepResult

	if maxAge > 0 {
		res.Listings = removeOlder(s.outputDir, now.Add(-maxAge), IsOutputFileName)

		pruned, err := s.history.Prune(ctx, now.Add(-maxAge))
		if err != nil {
			slog.Error("prune conversion history", "error", err)
		}
		res.History = pruned
	}

	res.Staged = removeOlder(s.uploadDir, now.Add(-staleStagingAge), func(name string) bool {
		return strings.HasSuffix(name, ".txt")
	})
	res.TempFiles = removeOlder(s.outputDir, now.Add(-staleStagingAge), isTempWorkbook)
	return res
}

// removeOlder deletes regular files in dir modified before cutoff whose
// names satisfy match, and returns how many were removed.
func removeOlder(dir string, cutoff time.Time, match func(string) bool) int {
	entries, err := os.ReadDir(dir)
	if err != nil {
		slog.Error("read directory for sweep", "dir", dir, "error", err)
		return 0
	}

	removed := 0
	for _, e := range entries {
		if !e.Type().IsRegular() || !match(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil {
			slog.Warn("remove expired file", "file", e.Name(), "error", err)
			continue
		}
		removed++
	}
	return removed
}
