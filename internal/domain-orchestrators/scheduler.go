package orchestrators

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ochairo/unitynuget/internal/domain/entities"
	"github.com/ochairo/unitynuget/internal/domain/interfaces"
	"github.com/ochairo/unitynuget/internal/domain/services"
)

// Builder interface for running one build over the allow-list
type Builder interface {
	Run(ctx context.Context) (*BuildResult, error)
}

// Locker interface for guarding the artifact folder against a second writer process
type Locker interface {
	Lock(ctx context.Context) error
	Unlock() error
}

// SchedulerConfig holds the run intervals
type SchedulerConfig struct {
	UpdateInterval time.Duration
	RetryInterval  time.Duration
}

// Scheduler reruns the build periodically and publishes catalogs of error free runs.
// Catalog and Status are safe to call from any goroutine.
type Scheduler struct {
	builder Builder
	report  *services.BuildReport
	locker  Locker
	config  SchedulerConfig
	logger  interfaces.Logger
	now     func() time.Time

	catalog    atomic.Pointer[services.Catalog]
	lastFailed atomic.Bool
}

// NewScheduler creates a scheduler. locker may be nil.
func NewScheduler(builder Builder, report *services.BuildReport, locker Locker, config SchedulerConfig, logger interfaces.Logger) *Scheduler {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if config.UpdateInterval <= 0 {
		config.UpdateInterval = 10 * time.Minute
	}
	if config.RetryInterval <= 0 {
		config.RetryInterval = time.Minute
	}
	return &Scheduler{
		builder: builder,
		report:  report,
		locker:  locker,
		config:  config,
		logger:  logger,
		now:     time.Now,
	}
}

// Catalog returns the last published catalog, nil before the first successful run
func (s *Scheduler) Catalog() *services.Catalog {
	return s.catalog.Load()
}

// Status returns a snapshot of the current or last run
func (s *Scheduler) Status() entities.BuildStatus {
	return s.report.Snapshot()
}

// TimeRemaining returns the time until the next scheduled update. It is zero after a failed run
// and negative when the update is overdue.
func (s *Scheduler) TimeRemaining() time.Duration {
	if s.lastFailed.Load() {
		return 0
	}
	last := s.report.Snapshot().LastSuccess
	if last.IsZero() {
		return 0
	}
	return last.Add(s.config.UpdateInterval).Sub(s.now())
}

// RunOnce runs one build and publishes its catalog when the run had no errors.
func (s *Scheduler) RunOnce(ctx context.Context) (*BuildResult, error) {
	if s.locker != nil {
		if err := s.locker.Lock(ctx); err != nil {
			s.lastFailed.Store(true)
			return nil, fmt.Errorf("failed to lock artifact folder: %w", err)
		}
		defer func() {
			if err := s.locker.Unlock(); err != nil {
				s.logger.Warn("failed to unlock artifact folder", interfaces.Err(err))
			}
		}()
	}

	result, err := s.builder.Run(ctx)
	if err != nil || result == nil || !result.Success || result.Catalog == nil {
		s.lastFailed.Store(true)
		return result, err
	}

	s.catalog.Store(result.Catalog)
	s.lastFailed.Store(false)
	s.logger.Info("catalog published", interfaces.F("packages", result.Catalog.Len()))
	return result, nil
}

// Start runs a build immediately, then every update interval, or after the retry interval when a
// run failed. It returns when ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	for {
		wait := s.config.UpdateInterval
		if _, err := s.RunOnce(ctx); err != nil {
			s.logger.Error("build run failed", interfaces.Err(err))
		}
		if s.lastFailed.Load() {
			wait = s.config.RetryInterval
			s.logger.Warn("build had errors, keeping previous catalog", interfaces.F("retry_in", wait.String()))
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
