package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// CycleRunner is implemented by the poller.
type CycleRunner interface {
	RunCycle(ctx context.Context) error
}

// DefaultSpec runs the daily cycle at 03:10, after the provider has
// posted the previous day's readings.
const DefaultSpec = "10 3 * * *"

type Scheduler struct {
	ctx    context.Context
	runner CycleRunner
	logger *logrus.Logger
	cron   *cron.Cron
	spec   string
}

func NewScheduler(ctx context.Context, runner CycleRunner, spec string, logger *logrus.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSpec
	}
	return &Scheduler{
		ctx:    ctx,
		runner: runner,
		logger: logger,
		cron:   cron.New(),
		spec:   spec,
	}
}

// Start the scheduler
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, s.collectData)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// collectData runs one fetch cycle. Errors are logged, not fatal: a
// failed cycle leaves the sensors stale until the next scheduled run.
func (s *Scheduler) collectData() {
	if err := s.runner.RunCycle(s.ctx); err != nil {
		s.logger.WithError(err).Error("Scheduled cycle failed")
	}
}

// Stop the scheduler
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
