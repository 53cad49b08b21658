package worker

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Scheduler runs the maintenance jobs on cron schedules.
type Scheduler struct {
	cron   *cron.Cron
	jobs   *Jobs
	logger *zap.Logger
}

func NewScheduler(jobs *Jobs, logger *zap.Logger) *Scheduler {
	cronLogger := cron.PrintfLogger(zap.NewStdLog(logger))
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger))),
		jobs:   jobs,
		logger: logger,
	}
}

// Schedule registers both jobs. An empty spec leaves that job unscheduled.
func (s *Scheduler) Schedule(reconcileSpec, purgeSpec string) error {
	if reconcileSpec != "" {
		if _, err := s.cron.AddFunc(reconcileSpec, s.jobs.Reconcile); err != nil {
			return fmt.Errorf("schedule reconciliation %q: %w", reconcileSpec, err)
		}
		s.logger.Info("scheduled ledger reconciliation", zap.String("schedule", reconcileSpec))
	}
	if purgeSpec != "" {
		if _, err := s.cron.AddFunc(purgeSpec, s.jobs.PurgeIdempotencyKeys); err != nil {
			return fmt.Errorf("schedule idempotency purge %q: %w", purgeSpec, err)
		}
		s.logger.Info("scheduled idempotency purge", zap.String("schedule", purgeSpec))
	}
	return nil
}

// Entries reports how many jobs are registered.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// Run starts the scheduler and returns a function that stops it and waits for running jobs.
func (s *Scheduler) Run() func() {
	s.cron.Start()
	return func() {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
}
