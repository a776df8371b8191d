package jobs

import (
	"context"
	"fmt"
	"time"

	"consolerent-backend/internal/config"
	"consolerent-backend/internal/logger"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/service"
)

const (
	JobOverdueSweep        = "overdue-sweep"
	JobExpirySweep         = "expiry-sweep"
	JobReminderSweep       = "reminder-sweep"
	JobNotificationCleanup = "notification-cleanup"
	JobStatusRefresh       = "status-refresh"
)

// defaultJobTimeout bounds one pass so a stuck store cannot pile up cron runs.
const defaultJobTimeout = 5 * time.Minute

// Sweeper is the part of the engine the periodic jobs drive.
type Sweeper interface {
	RunOverdueSweep(ctx context.Context) (*service.SweepReport, error)
	RunExpirySweep(ctx context.Context) (*service.SweepReport, error)
	RunReminderSweep(ctx context.Context) (*service.SweepReport, error)
	RunNotificationCleanup(ctx context.Context) (*service.SweepReport, error)
	RunStatusRefresh(ctx context.Context) (*service.SweepReport, error)
}

// JobRunner coordinates all scheduled jobs
type JobRunner struct {
	sweeper Sweeper
	metrics *metrics.Metrics
	config  *config.Config
	timeout time.Duration
}

// NewJobRunner creates a new job runner with all dependencies
func NewJobRunner(sweeper Sweeper, m *metrics.Metrics, cfg *config.Config) *JobRunner {
	return &JobRunner{
		sweeper: sweeper,
		metrics: m,
		config:  cfg,
		timeout: defaultJobTimeout,
	}
}

// Config exposes the configuration the scheduler registers jobs from
func (jr *JobRunner) Config() *config.Config {
	return jr.config
}

// runWithRecovery wraps job execution with panic recovery. Sweeps are
// stateless, so a failed pass is simply retried by the next tick.
func (jr *JobRunner) runWithRecovery(jobName string, jobFunc func(ctx context.Context) (*service.SweepReport, error)) (report *service.SweepReport, err error) {
	log := logger.WithJob(jobName)
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Error("Job panicked", "panic", r)
			err = fmt.Errorf("job %s panicked: %v", jobName, r)
		}
		jr.metrics.RecordSweep(jobName, time.Since(start), err)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), jr.timeout)
	defer cancel()

	log.Info("Starting job")
	report, err = jobFunc(ctx)
	if err != nil {
		log.Error("Job failed", "error", err)
		return report, err
	}
	log.Info("Job completed",
		"examined", report.Examined,
		"applied", report.Applied,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", time.Since(start).String())
	return report, nil
}

// RunOverdueSweep assesses late_return penalties for overdue bookings
func (jr *JobRunner) RunOverdueSweep() (*service.SweepReport, error) {
	return jr.runWithRecovery(JobOverdueSweep, jr.sweeper.RunOverdueSweep)
}

// RunExpirySweep deletes expired soft locks
func (jr *JobRunner) RunExpirySweep() (*service.SweepReport, error) {
	return jr.runWithRecovery(JobExpirySweep, jr.sweeper.RunExpirySweep)
}

// RunReminderSweep sends end-of-rental reminders
func (jr *JobRunner) RunReminderSweep() (*service.SweepReport, error) {
	return jr.runWithRecovery(JobReminderSweep, jr.sweeper.RunReminderSweep)
}

// RunNotificationCleanup removes old read notifications
func (jr *JobRunner) RunNotificationCleanup() (*service.SweepReport, error) {
	return jr.runWithRecovery(JobNotificationCleanup, jr.sweeper.RunNotificationCleanup)
}

// RunStatusRefresh re-derives resource display statuses
func (jr *JobRunner) RunStatusRefresh() (*service.SweepReport, error) {
	return jr.runWithRecovery(JobStatusRefresh, jr.sweeper.RunStatusRefresh)
}

// Run executes a job by name
func (jr *JobRunner) Run(jobName string) (*service.SweepReport, error) {
	switch jobName {
	case JobOverdueSweep:
		return jr.RunOverdueSweep()
	case JobExpirySweep:
		return jr.RunExpirySweep()
	case JobReminderSweep:
		return jr.RunReminderSweep()
	case JobNotificationCleanup:
		return jr.RunNotificationCleanup()
	case JobStatusRefresh:
		return jr.RunStatusRefresh()
	default:
		return nil, fmt.Errorf("unknown job %q", jobName)
	}
}

// RunAll runs every job once (for manual execution). It keeps going after a
// failure and reports the first error.
func (jr *JobRunner) RunAll() error {
	var firstErr error
	for _, name := range JobNames() {
		if _, err := jr.Run(name); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// JobNames lists the jobs in the order RunAll executes them
func JobNames() []string {
	return []string{JobExpirySweep, JobOverdueSweep, JobStatusRefresh, JobReminderSweep, JobNotificationCleanup}
}
