package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// MissedPunchNotifier alerts managers about sessions left open too long.
type MissedPunchNotifier interface {
	NotifyMissedPunches(ctx context.Context) (int, error)
}

type TimeclockJobs struct {
	notifier MissedPunchNotifier
	interval time.Duration
	timeout  time.Duration
	logger   *slog.Logger
}

func NewTimeclockJobs(notifier MissedPunchNotifier, interval, timeout time.Duration, logger *slog.Logger) *TimeclockJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &TimeclockJobs{
		notifier: notifier,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

func (j *TimeclockJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob(Job{
		Name:     "scan_missed_punches",
		Interval: j.interval,
		Timeout:  j.timeout,
		Fn:       j.ScanMissedPunches,
	})
}

// ScanMissedPunches only reports open sessions. It never closes them.
func (j *TimeclockJobs) ScanMissedPunches(ctx context.Context) error {
	n, err := j.notifier.NotifyMissedPunches(ctx)
	if err != nil {
		return fmt.Errorf("scanning missed punches: %w", err)
	}
	if n > 0 {
		j.logger.Info("Cron: missed punches reported", "count", n)
	}
	return nil
}
