package sched

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// cronLogger adapts zap to the cron logger contract.
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Infow(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}

// Scheduler runs the periodic jobs. Every job is wrapped so a panic is
// recovered and an overlapping run is skipped rather than stacked, which is
// what keeps at most one poll cycle in flight.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	cl := cronLogger{l: logger.Named("cron").Sugar()}
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	return &Scheduler{cron: c, logger: logger}
}

// Every runs fn at a fixed interval, first run one interval after Start.
func (s *Scheduler) Every(interval time.Duration, name string, fn func()) {
	s.cron.Schedule(cron.Every(interval), cron.FuncJob(fn))
	s.logger.Info("job scheduled",
		zap.String("job", name),
		zap.Duration("interval", interval))
}

// Daily runs fn once a day at "HH:MM" in the scheduler's location.
func (s *Scheduler) Daily(at, name string, fn func()) error {
	tm, err := time.Parse("15:04", at)
	if err != nil {
		return fmt.Errorf("daily time %q: want HH:MM", at)
	}
	spec := fmt.Sprintf("%d %d * * *", tm.Minute(), tm.Hour())
	if _, err := s.cron.AddFunc(spec, fn); err != nil {
		return fmt.Errorf("schedule daily %s: %w", name, err)
	}
	s.logger.Info("job scheduled", zap.String("job", name), zap.String("at", at))
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for in-flight jobs to drain, bounded by
// ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	select {
	case <-s.cron.Stop().Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
