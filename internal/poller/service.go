// Package poller drives source pipelines on a fixed cadence.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/aogosto/order-triage/internal/pipeline"
	pkgerrors "github.com/aogosto/order-triage/pkg/errors"
	"github.com/aogosto/order-triage/pkg/logger"
	"github.com/aogosto/order-triage/pkg/metrics"
)

const (
	defaultInterval = 30 * time.Second
	defaultCooldown = 120 * time.Second
)

const (
	statusOK      = "ok"
	statusFailed  = "failed"
	statusPanic   = "panic"
	statusSkipped = "skipped"
)

// Job is one source pipeline.
type Job interface {
	Name() string
	RunCycle(ctx context.Context) (pipeline.Summary, error)
}

// Alerter receives cycle failures.
type Alerter interface {
	AlertOperator(ctx context.Context, orderID string, cause error)
}

type ServiceParams struct {
	Logger   *logger.Logger
	Job      Job
	Lock     Lock
	Metrics  *metrics.PollMetrics
	Alerter  Alerter
	Interval time.Duration
	// Cooldown replaces the next interval after a failed cycle.
	Cooldown time.Duration
}

// Service runs one job every interval, one cycle at a time.
type Service struct {
	logg     *logger.Logger
	job      Job
	lock     Lock
	metrics  *metrics.PollMetrics
	alerter  Alerter
	interval time.Duration
	cooldown time.Duration
	sleep    func(ctx context.Context, d time.Duration) error
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Job == nil {
		return nil, fmt.Errorf("job required")
	}
	if params.Lock == nil {
		return nil, fmt.Errorf("lock required")
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	cooldown := params.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	return &Service{
		logg:     params.Logger,
		job:      params.Job,
		lock:     params.Lock,
		metrics:  params.Metrics,
		alerter:  params.Alerter,
		interval: interval,
		cooldown: cooldown,
		sleep:    sleep,
	}, nil
}

func (s *Service) Name() string {
	return s.job.Name()
}

// Run loops until the context is canceled. A failed cycle is followed by
// the cooldown instead of the interval.
func (s *Service) Run(ctx context.Context) error {
	ctx = s.logg.WithSource(ctx, s.job.Name())
	s.logg.Info(s.logg.WithField(ctx, "interval", s.interval.String()), "poller.started")
	for {
		wait := s.interval
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			wait = s.cooldown
			s.logg.Warn(s.logg.WithField(ctx, "cooldown", wait.String()), "poller.cooldown")
		}
		if err := s.sleep(ctx, wait); err != nil {
			break
		}
	}
	s.logg.Info(ctx, "poller.stopped")
	return ctx.Err()
}

// RunOnce executes a single cycle under the lock. Panics are recovered and
// returned as internal errors.
func (s *Service) RunOnce(ctx context.Context) (err error) {
	runID := uuid.NewString()
	ctx = s.logg.WithRunID(s.logg.WithSource(ctx, s.job.Name()), runID)

	locked, err := s.lock.Acquire(ctx)
	if err != nil {
		err = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "acquire cycle lock")
		s.logg.Error(ctx, "poller.lock_failed", err)
		s.observe(statusFailed, 0)
		return err
	}
	if !locked {
		s.logg.Info(ctx, "poller.locked_elsewhere")
		s.observe(statusSkipped, 0)
		return nil
	}
	defer func() {
		err = multierr.Append(err, s.lock.Release(ctx))
	}()

	start := time.Now()
	summary, status, err := s.guard(ctx)
	duration := time.Since(start)
	s.observe(status, duration)

	fields := map[string]any{"duration_ms": duration.Milliseconds()}
	for outcome, count := range summary {
		fields[string(outcome)] = count
	}
	cctx := s.logg.WithFields(ctx, fields)
	if err != nil {
		s.logg.Error(cctx, "poller.cycle_failed", err)
		if s.alerter != nil && ctx.Err() == nil {
			s.alerter.AlertOperator(ctx, "", err)
		}
		return err
	}
	if summary.Total() > 0 {
		s.logg.Info(cctx, "poller.cycle_complete")
	} else {
		s.logg.Debug(cctx, "poller.cycle_idle")
	}
	return nil
}

func (s *Service) guard(ctx context.Context) (summary pipeline.Summary, status string, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.logg.Error(ctx, "poller.panic", fmt.Errorf("%v", r))
			summary = nil
			status = statusPanic
			err = pkgerrors.New(pkgerrors.CodeInternal, fmt.Sprintf("cycle panic: %v", r))
		}
	}()
	summary, err = s.job.RunCycle(ctx)
	if err != nil {
		return summary, statusFailed, err
	}
	return summary, statusOK, nil
}

func (s *Service) observe(status string, d time.Duration) {
	if s.metrics == nil {
		return
	}
	s.metrics.ObserveCycle(s.job.Name(), status, d)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
