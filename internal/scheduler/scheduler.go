// Package scheduler runs ingestion on a cron expression.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled ingestion run.
type Job func(ctx context.Context)

// Scheduler triggers a Job on a standard five-field cron spec. A trigger
// that fires while the previous run is still going is skipped.
type Scheduler struct {
	spec     string
	schedule cron.Schedule
	loc      *time.Location
	job      Job
	logger   *slog.Logger
}

// New validates spec. loc defaults to UTC.
func New(spec string, loc *time.Location, job Job, logger *slog.Logger) (*Scheduler, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("parse cron %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{spec: spec, schedule: sched, loc: loc, job: job, logger: logger}, nil
}

// Next returns the first trigger strictly after t.
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t.In(s.loc))
}

// Start runs the schedule until ctx is cancelled, then waits for a running
// job to finish. Jobs receive ctx, so cancellation reaches them.
func (s *Scheduler) Start(ctx context.Context) {
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		start := time.Now()
		s.logger.Info("Scheduled run starting", "cron", s.spec)
		s.job(ctx)
		s.logger.Info("Scheduled run finished",
			"duration_ms", time.Since(start).Milliseconds(),
			"next", s.Next(time.Now()).Format(time.RFC3339))
	}))
	c.Start()
	s.logger.Info("Scheduler started", "cron", s.spec, "next", s.Next(time.Now()).Format(time.RFC3339))

	<-ctx.Done()
	<-c.Stop().Done()
	s.logger.Info("Scheduler stopped")
}
