package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner is the job the scheduler triggers
type Runner interface {
	RunScheduledPlanners(ctx context.Context) error
}

// Scheduler triggers planner runs on a cron spec. Overlapping triggers are
// skipped while a previous run is still going.
type Scheduler struct {
	cron    *cron.Cron
	runner  Runner
	log     *logrus.Logger
	timeout time.Duration
}

// New parses spec (standard five-field cron) and registers the planner job
func New(spec string, runner Runner, log *logrus.Logger, timeout time.Duration) (*Scheduler, error) {
	cronLog := cron.PrintfLogger(log)
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		runner:  runner,
		log:     log,
		timeout: timeout,
	}
	if _, err := s.cron.AddFunc(spec, s.runOnce); err != nil {
		return nil, fmt.Errorf("failed to schedule planner with spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) runOnce() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	if err := s.runner.RunScheduledPlanners(ctx); err != nil {
		s.log.WithError(err).Error("scheduled planner pass failed")
		return
	}
	s.log.WithField("elapsed", time.Since(start).String()).Info("scheduled planner pass finished")
}

// Start begins triggering in the background
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops triggering and waits for a running job to finish
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
