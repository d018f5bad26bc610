// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/bilim-app/bilim/internal/shared/biztime"
	"github.com/bilim-app/bilim/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterBillingJobs registers the recurring billing maintenance jobs:
// - cancel pending transactions past the provider timeout window
// - sweep entitlements back into agreement with the payment ledger
func (m *SchedulerManager) RegisterBillingJobs(
	cancelStaleJob BatchJob,
	sweepJob BatchJob,
	sweepInterval time.Duration,
) error {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.runJob(ctx, "stale-transactions", cancelStaleJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "stale"),
		gocron.WithName("stale-transaction-cancel"),
	)
	if err != nil {
		return err
	}

	_, err = m.scheduler.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			m.runJob(ctx, "entitlement-sweep", sweepJob)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("billing", "sweep"),
		gocron.WithName("entitlement-sweep"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered billing jobs",
		"stale_interval", "15m", "sweep_interval", sweepInterval)
	return nil
}

func (m *SchedulerManager) runJob(ctx context.Context, name string, job BatchJob) {
	startTime := biztime.NowUTC()

	count, err := job.Execute(ctx)
	if err != nil {
		m.logger.Errorw("scheduled job failed",
			"job", name,
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if count > 0 {
		m.logger.Infow("scheduled job finished",
			"job", name,
			"count", count,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("scheduled job finished with nothing to do",
			"job", name,
			"duration", time.Since(startTime),
		)
	}
}

// Start begins executing registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler started")
}

// Stop gracefully shuts the scheduler down, waiting for running jobs.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	if err := m.scheduler.Shutdown(); err != nil {
		return err
	}
	m.started = false
	m.logger.Infow("scheduler stopped")
	return nil
}
