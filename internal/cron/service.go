package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/archivesurmer-backend/pkg/logger"
	"github.com/angelmondragon/archivesurmer-backend/pkg/metrics"
)

const defaultInterval = 5 * time.Minute

type ServiceParams struct {
	Logger   *logger.Logger
	Schedule *Schedule
	Lock     Lock
	Metrics  *metrics.MaintenanceMetrics
	Interval time.Duration
}

// Service ticks the schedule. Only the worker holding the lock runs a cycle.
type Service struct {
	logg     *logger.Logger
	schedule *Schedule
	lock     Lock
	metrics  *metrics.MaintenanceMetrics
	interval time.Duration
	now      func() time.Time
}

// CycleReport summarises one tick.
type CycleReport struct {
	Skipped  bool
	Ran      []string
	Failed   []string
	Affected int
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Schedule == nil || params.Schedule.Len() == 0 {
		return nil, fmt.Errorf("at least one job required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:     params.Logger,
		schedule: params.Schedule,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
		now:      time.Now,
	}, nil
}

// Run executes a cycle immediately, then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.tick(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	report, err := s.RunCycle(ctx)
	if err != nil {
		s.logg.Error(ctx, "cron.cycle.failed", err)
		return
	}
	if report.Skipped {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"ran":      report.Ran,
		"failed":   report.Failed,
		"affected": report.Affected,
	})
	if len(report.Failed) > 0 {
		s.logg.Warn(logCtx, "cron.cycle.partial")
		return
	}
	s.logg.Info(logCtx, "cron.cycle.complete")
}

// RunCycle runs every due job once under the lock. A failing job does not stop
// the ones after it; a canceled context does.
func (s *Service) RunCycle(ctx context.Context) (CycleReport, error) {
	var report CycleReport
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		return report, fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		report.Skipped = true
		s.metrics.IncSkippedCycle()
		s.logg.Info(ctx, "cron.cycle.skipped")
		return report, nil
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx)); err != nil {
			s.logg.Error(ctx, "cron.lock.release_failed", err)
		}
	}()

	for _, job := range s.schedule.Due(s.now()) {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		affected, err := s.runJob(ctx, job)
		report.Ran = append(report.Ran, job.Name())
		if err != nil {
			report.Failed = append(report.Failed, job.Name())
			continue
		}
		report.Affected += affected
	}
	return report, nil
}

func (s *Service) runJob(ctx context.Context, job Job) (int, error) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	started := s.now()
	affected, err := job.Run(jobCtx)
	took := time.Since(started)
	s.metrics.ObserveRun(job.Name(), took, affected, err)
	s.schedule.markRan(job.Name(), started)

	jobCtx = s.logg.WithFields(jobCtx, map[string]any{
		"duration_ms": took.Milliseconds(),
		"affected":    affected,
	})
	if err != nil {
		s.logg.Error(jobCtx, "cron.job.failed", err)
		return 0, err
	}
	s.logg.Info(jobCtx, "cron.job.done")
	return affected, nil
}
