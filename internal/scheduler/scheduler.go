// Package scheduler runs periodic background jobs such as the insights recompute
// and the producer fetch.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

// Job is a unit of periodic work. The context is cancelled when the scheduler stops
// or the job exceeds its timeout.
type Job func(ctx context.Context) error

// Scheduler wraps a gocron scheduler running in UTC. Runs of the same job never overlap.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    *zap.Logger
	ctx       context.Context
	cancel    context.CancelFunc
}

// New creates a Scheduler.
func New(logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{scheduler: s, logger: logger, ctx: ctx, cancel: cancel}
}

// Every registers job to run at interval. When immediately is false the first run
// waits one full interval. timeout bounds each run; zero means the interval.
func (s *Scheduler) Every(name string, interval, timeout time.Duration, immediately bool, job Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule %s: interval must be positive", name)
	}
	if timeout <= 0 {
		timeout = interval
	}

	sched := s.scheduler.Every(interval).Tag(name)
	if !immediately {
		sched = sched.WaitForSchedule()
	}
	_, err := sched.Do(func() { s.run(name, timeout, job) })
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.Duration("interval", interval))
	return nil
}

func (s *Scheduler) run(name string, timeout time.Duration, job Job) {
	ctx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	start := time.Now()
	if err := job(ctx); err != nil {
		s.logger.Error("job failed", zap.String("job", name), zap.Error(err), zap.Duration("duration", time.Since(start)))
		return
	}
	s.logger.Debug("job completed", zap.String("job", name), zap.Duration("duration", time.Since(start)))
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	return s.scheduler.Len()
}

// Start runs the scheduler in the background.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop cancels running jobs and stops future runs.
func (s *Scheduler) Stop() {
	s.cancel()
	s.scheduler.Stop()
}
