// Package cron runs the server's periodic maintenance jobs on gocron.
package cron

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/nhohoai/study-engine/internal/redact"
)

// Job is a periodic maintenance function.
type Job func() error

// Scheduler runs named jobs at fixed intervals. A job never overlaps with itself.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
}

// New creates a scheduler in UTC.
func New(logger *slog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger.With(slog.String("component", "cron")),
	}
}

// Every registers job to run every interval, first after one interval has passed.
func (s *Scheduler) Every(name string, interval time.Duration, job Job) error {
	_, err := s.scheduler.Every(interval).WaitForSchedule().Tag(name).Do(func() {
		start := time.Now()
		if err := job(); err != nil {
			s.logger.Error("job failed",
				slog.String("job", name),
				slog.String("error", redact.Error(err)))
			return
		}
		s.logger.Debug("job finished",
			slog.String("job", name),
			slog.Duration("duration", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return nil
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop halts the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// Jobs returns the number of registered jobs.
func (s *Scheduler) Jobs() int {
	return s.scheduler.Len()
}
