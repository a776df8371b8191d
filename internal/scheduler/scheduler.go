package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"consolerent-backend/internal/jobs"
	"consolerent-backend/internal/logger"
)

// Scheduler manages cron job scheduling
type Scheduler struct {
	cron *cron.Cron
	jobs *jobs.JobRunner
}

// NewScheduler creates a new scheduler with the provided job runner. A bad
// cron schedule is a configuration error and stops startup.
func NewScheduler(jobRunner *jobs.JobRunner) (*Scheduler, error) {
	// Create cron with UTC timezone and seconds precision. Overlapping runs of
	// the same sweep are skipped rather than queued.
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)

	s := &Scheduler{
		cron: c,
		jobs: jobRunner,
	}

	if err := s.registerJobs(); err != nil {
		return nil, err
	}
	return s, nil
}

// registerJobs registers all scheduled jobs with the cron scheduler
func (s *Scheduler) registerJobs() error {
	cfg := s.jobs.Config().Scheduler

	entries := []struct {
		name     string
		schedule string
	}{
		{jobs.JobOverdueSweep, cfg.OverdueSweep},
		{jobs.JobExpirySweep, cfg.ExpirySweep},
		{jobs.JobReminderSweep, cfg.ReminderSweep},
		{jobs.JobNotificationCleanup, cfg.NotificationCleanup},
		{jobs.JobStatusRefresh, cfg.StatusRefresh},
	}
	for _, e := range entries {
		name := e.name
		_, err := s.cron.AddFunc(e.schedule, func() {
			// errors are logged and counted by the runner
			_, _ = s.jobs.Run(name)
		})
		if err != nil {
			logger.Error("Failed to register job", "job", name, "schedule", e.schedule, "error", err)
			return fmt.Errorf("register %s: %w", name, err)
		}
		logger.Debug("Registered job", "job", name, "schedule", e.schedule)
	}

	logger.Info("All cron jobs registered successfully", "count", len(entries))
	return nil
}

// Start begins the cron scheduler
func (s *Scheduler) Start() {
	logger.Info("Starting cron scheduler...")
	s.cron.Start()
	logger.Info("Cron scheduler started successfully")
}

// Stop gracefully stops the cron scheduler, waiting for running jobs
func (s *Scheduler) Stop() {
	logger.Info("Stopping cron scheduler...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Cron scheduler stopped")
}

// IsRunning returns true if the scheduler has jobs registered
func (s *Scheduler) IsRunning() bool {
	return len(s.cron.Entries()) > 0
}
