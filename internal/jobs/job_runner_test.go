package jobs

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"consolerent-backend/internal/config"
	"consolerent-backend/internal/metrics"
	"consolerent-backend/internal/service"
)

type fakeSweeper struct {
	calls       []string
	overdueErr  error
	panicExpiry bool
}

func (f *fakeSweeper) RunOverdueSweep(ctx context.Context) (*service.SweepReport, error) {
	f.calls = append(f.calls, JobOverdueSweep)
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("missing deadline")
	}
	return &service.SweepReport{Job: JobOverdueSweep, Examined: 2, Applied: 1, Skipped: 1}, f.overdueErr
}

func (f *fakeSweeper) RunExpirySweep(context.Context) (*service.SweepReport, error) {
	f.calls = append(f.calls, JobExpirySweep)
	if f.panicExpiry {
		panic("store exploded")
	}
	return &service.SweepReport{Job: JobExpirySweep, Applied: 3}, nil
}

func (f *fakeSweeper) RunReminderSweep(context.Context) (*service.SweepReport, error) {
	f.calls = append(f.calls, JobReminderSweep)
	return &service.SweepReport{Job: JobReminderSweep}, nil
}

func (f *fakeSweeper) RunNotificationCleanup(context.Context) (*service.SweepReport, error) {
	f.calls = append(f.calls, JobNotificationCleanup)
	return &service.SweepReport{Job: JobNotificationCleanup}, nil
}

func (f *fakeSweeper) RunStatusRefresh(context.Context) (*service.SweepReport, error) {
	f.calls = append(f.calls, JobStatusRefresh)
	return &service.SweepReport{Job: JobStatusRefresh}, nil
}

func TestJobRunner_RunByName(t *testing.T) {
	sweeper := &fakeSweeper{}
	jr := NewJobRunner(sweeper, nil, &config.Config{})

	report, err := jr.Run(JobOverdueSweep)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Applied)

	_, err = jr.Run("make-coffee")
	assert.Error(t, err)
	assert.Equal(t, []string{JobOverdueSweep}, sweeper.calls)
}

func TestJobRunner_RecoversFromPanic(t *testing.T) {
	sweeper := &fakeSweeper{panicExpiry: true}
	m := metrics.New()
	jr := NewJobRunner(sweeper, m, &config.Config{})

	_, err := jr.RunExpirySweep()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SweepErrors.WithLabelValues(JobExpirySweep)))
}

func TestJobRunner_RunAllContinuesAfterFailure(t *testing.T) {
	sweeper := &fakeSweeper{overdueErr: errors.New("db down")}
	jr := NewJobRunner(sweeper, nil, &config.Config{})

	err := jr.RunAll()
	assert.EqualError(t, err, "db down")
	assert.Equal(t, JobNames(), sweeper.calls)
}
