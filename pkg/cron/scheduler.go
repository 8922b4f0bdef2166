// Package cron provides scheduled background jobs using robfig/cron.
package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

// TempPattern matches the upload temp files written by the import service.
const TempPattern = "epd-*.pdf"

// Pruner deletes archived files stored before a cutoff.
type Pruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// Config controls which jobs run.
type Config struct {
	TempDir    string
	TempMaxAge time.Duration
	// Retention of archived uploads; zero keeps them forever.
	Retention time.Duration
}

// Scheduler manages background scheduled jobs using robfig/cron.
type Scheduler struct {
	cron    *cron.Cron
	config  Config
	archive Pruner
	logger  *slog.Logger
}

// NewScheduler creates a new job scheduler. archive may be nil.
func NewScheduler(cfg Config, archive Pruner, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}

	// Create cron with seconds disabled (standard 5-field format)
	c := cron.New(cron.WithLogger(cron.VerbosePrintfLogger(slog.NewLogLogger(logger.Handler(), slog.LevelDebug))))

	return &Scheduler{
		cron:    c,
		config:  cfg,
		archive: archive,
		logger:  logger,
	}
}

// Start begins scheduled jobs.
func (s *Scheduler) Start() error {
	// Temp sweep: every 15 minutes
	if _, err := s.cron.AddFunc("*/15 * * * *", s.sweepTemp); err != nil {
		return err
	}

	// Archive retention: daily at 3:00 AM
	if s.archive != nil && s.config.Retention > 0 {
		if _, err := s.cron.AddFunc("0 3 * * *", s.pruneArchive); err != nil {
			return err
		}
	}

	s.cron.Start()
	s.logger.Info("cron scheduler started",
		slog.Int("jobs", len(s.cron.Entries())),
	)
	return nil
}

// Stop gracefully stops all scheduled jobs.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("cron scheduler stopping")
	return s.cron.Stop()
}

// RunNow manually triggers the temp sweep.
func (s *Scheduler) RunNow() {
	go s.sweepTemp()
}

func (s *Scheduler) sweepTemp() {
	removed, err := SweepTempFiles(s.config.TempDir, s.config.TempMaxAge, time.Now())
	if err != nil {
		s.logger.Warn("temp sweep incomplete", slog.Any("error", err))
	}
	if removed > 0 {
		s.logger.Info("stale temp files removed",
			slog.String("dir", s.config.TempDir),
			slog.Int("removed", removed),
		)
	}
}

func (s *Scheduler) pruneArchive() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	removed, err := s.archive.Prune(ctx, time.Now().Add(-s.config.Retention))
	if err != nil {
		s.logger.Error("failed to prune archive", slog.Any("error", err))
	}
	s.logger.Info("archive retention completed", slog.Int("removed", removed))
}

// SweepTempFiles removes upload temp files in dir last modified more than
// maxAge before now. Files of a live parse are younger than any sane maxAge.
func SweepTempFiles(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, TempPattern))
	if err != nil {
		return 0, fmt.Errorf("failed to list temp files: %w", err)
	}

	removed := 0
	var errs []error
	for _, path := range matches {
		info, err := os.Stat(path)
		if err != nil {
			if !os.IsNotExist(err) {
				errs = append(errs, err)
			}
			continue
		}
		if info.IsDir() || now.Sub(info.ModTime()) < maxAge {
			continue
		}
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
