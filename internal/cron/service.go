package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/quickcart-labs/quickcart-backend/pkg/logger"
)

const defaultInterval = time.Minute

type jobMetrics interface {
	ObserveDuration(job string, duration time.Duration)
	IncSuccess(job string)
	IncFailure(job string)
}

type ServiceParams struct {
	Logger     *logger.Logger
	Registry   *Registry
	Lock       Lock
	Metrics    jobMetrics
	Interval   time.Duration
	JobTimeout time.Duration
}

// Service ticks on a fixed interval. Each cycle takes the shared lock and runs
// every registered job in order; a failing job never stops the ones after it.
type Service struct {
	logg       *logger.Logger
	registry   *Registry
	lock       Lock
	metrics    jobMetrics
	interval   time.Duration
	jobTimeout time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	if params.Registry == nil {
		return nil, fmt.Errorf("job registry required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Service{
		logg:       params.Logger,
		registry:   params.Registry,
		lock:       params.Lock,
		metrics:    params.Metrics,
		interval:   interval,
		jobTimeout: params.JobTimeout,
	}, nil
}

// Run executes a cycle immediately, then once per interval until ctx ends.
func (s *Service) Run(ctx context.Context) error {
	s.RunOnce(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "cron.stopped")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs a single locked cycle and reports whether this replica ran it.
func (s *Service) RunOnce(ctx context.Context) bool {
	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(ctx, "cron.lock_failed", err)
		return false
	}
	if !locked {
		s.logg.Info(ctx, "cron.cycle_skipped")
		return false
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()

	for _, job := range s.registry.Jobs() {
		if ctx.Err() != nil {
			return true
		}
		s.runJob(ctx, job)
	}
	return true
}

func (s *Service) runJob(ctx context.Context, job Job) {
	name := job.Name()
	jobCtx := s.logg.WithField(ctx, "job", name)
	if s.jobTimeout > 0 {
		var cancel context.CancelFunc
		jobCtx, cancel = context.WithTimeout(jobCtx, s.jobTimeout)
		defer cancel()
	}

	start := time.Now()
	err := job.Run(jobCtx)
	elapsed := time.Since(start)
	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())

	if s.metrics != nil {
		s.metrics.ObserveDuration(name, elapsed)
	}
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		if s.metrics != nil {
			s.metrics.IncFailure(name)
		}
		return
	}
	s.logg.Info(jobCtx, "cron.job_completed")
	if s.metrics != nil {
		s.metrics.IncSuccess(name)
	}
}
