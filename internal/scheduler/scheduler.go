package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/altafino/imap-attachment-downloader/internal/email"
	"github.com/altafino/imap-attachment-downloader/internal/types"
)

// Scheduler runs the download pipeline for each account on its
// configured interval.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *slog.Logger
	jobs      map[string]*gocron.Job
	mu        sync.Mutex
}

// NewScheduler creates a new scheduler instance
func NewScheduler(logger *slog.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		logger:    logger,
		jobs:      make(map[string]*gocron.Job),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

// UpdateJob creates or replaces the job for a configuration. Called
// again after a config reload, so an existing job is removed first.
func (s *Scheduler) UpdateJob(cfg *types.Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[cfg.Meta.ID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, cfg.Meta.ID)
	}

	if !cfg.Scheduling.Enabled {
		s.logger.Info("scheduling disabled for configuration", "id", cfg.Meta.ID)
		return nil
	}

	jobFunc := func() {
		s.logger.Info("executing scheduled download", "config_id", cfg.Meta.ID)

		svc := email.NewService(cfg, s.logger)
		if _, err := svc.Run(context.Background()); err != nil {
			s.logger.Error("scheduled download failed",
				"error", err,
				"config_id", cfg.Meta.ID,
			)
		}
	}

	if cfg.Scheduling.StartNow {
		s.logger.Info("running job immediately", "config_id", cfg.Meta.ID)
		jobFunc()
	}

	job := s.scheduler.Every(cfg.Scheduling.FrequencyAmount)
	switch cfg.Scheduling.FrequencyEvery {
	case "minute":
		job = job.Minutes()
	case "hour":
		job = job.Hours()
	case "day":
		job = job.Days()
	case "week":
		job = job.Weeks()
	default:
		return fmt.Errorf("invalid frequency: %s", cfg.Scheduling.FrequencyEvery)
	}

	scheduledJob, err := job.Do(jobFunc)
	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}
	s.jobs[cfg.Meta.ID] = scheduledJob

	s.logger.Info("scheduled job updated",
		"id", cfg.Meta.ID,
		"frequency", fmt.Sprintf("every %d %s", cfg.Scheduling.FrequencyAmount, cfg.Scheduling.FrequencyEvery),
		"start_now", cfg.Scheduling.StartNow,
	)
	return nil
}

// RemoveJob removes the job for a configuration ID
func (s *Scheduler) RemoveJob(configID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if job, exists := s.jobs[configID]; exists {
		s.scheduler.RemoveByReference(job)
		delete(s.jobs, configID)
		s.logger.Info("removed scheduled job", "id", configID)
	}
}
