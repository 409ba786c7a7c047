// Package schedule repeats a reconciliation pass on a cron spec. Passes never
// overlap: a tick that fires while the previous pass is still running is
// skipped, and a panicking pass is recovered and logged.
package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job is one scheduled pass. ctx is cancelled when the scheduler stops.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule.
type Scheduler struct {
	runner *cron.Cron
	sched  cron.Schedule
	job    Job
	log    *zap.Logger
	runNow bool
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRunNow also runs the job once immediately when Run starts.
func WithRunNow() Option { return func(s *Scheduler) { s.runNow = true } }

// New parses spec (standard 5-field cron or a descriptor such as "@daily").
func New(spec string, job Job, log *zap.Logger, opts ...Option) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule: parse %q: %w", spec, err)
	}
	return newScheduler(sched, job, log, opts...), nil
}

func newScheduler(sched cron.Schedule, job Job, log *zap.Logger, opts ...Option) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		runner: cron.New(cron.WithLogger(cronLogger{log: log.Sugar()})),
		sched:  sched,
		job:    job,
		log:    log,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Next returns the next activation after t.
func (s *Scheduler) Next(t time.Time) time.Time { return s.sched.Next(t) }

// Run starts the scheduler and blocks until ctx is done. It then stops the
// cron runner and waits for a pass in flight to return before returning
// ctx.Err().
func (s *Scheduler) Run(ctx context.Context) error {
	jobCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	clog := cronLogger{log: s.log.Sugar()}
	// One chain for every entry, so an immediate run and a regular tick
	// share the same overlap guard.
	chain := cron.NewChain(cron.SkipIfStillRunning(clog), cron.Recover(clog))
	wrapped := chain.Then(cron.FuncJob(func() {
		start := time.Now()
		if err := s.job(jobCtx); err != nil {
			s.log.Error("scheduled pass failed", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
			return
		}
		s.log.Info("scheduled pass finished", zap.Duration("elapsed", time.Since(start)))
	}))
	s.runner.Schedule(s.sched, wrapped)
	if s.runNow {
		s.runner.Schedule(once(), wrapped)
	}

	s.runner.Start()
	s.log.Info("scheduler started", zap.Time("next", s.sched.Next(time.Now())))

	<-ctx.Done()
	cancel()
	<-s.runner.Stop().Done()
	s.log.Info("scheduler stopped")
	return ctx.Err()
}

// onceSchedule fires once, right away, then never again.
type onceSchedule struct{ fired *bool }

func once() cron.Schedule { return onceSchedule{fired: new(bool)} }

func (o onceSchedule) Next(t time.Time) time.Time {
	if *o.fired {
		return time.Time{}
	}
	*o.fired = true
	return t
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct{ log *zap.SugaredLogger }

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
