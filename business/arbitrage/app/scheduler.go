package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/ratelimit"
)

// SchedulerConfig holds the polling cadence.
type SchedulerConfig struct {
	Interval           time.Duration
	ExhaustedPause     time.Duration
	ResetCountersEvery int // cycles; zero never resets
}

// Scheduler drives detector cycles at a fixed interval.
type Scheduler struct {
	cfg        SchedulerConfig
	detector   *Detector
	chain      Chain
	dispatcher Dispatcher
	logger     logger.LoggerInterface

	lastCycle atomic.Int64 // unix nanos of the last finished cycle
}

// NewScheduler creates a new Scheduler.
func NewScheduler(cfg SchedulerConfig, detector *Detector, chain Chain, dispatcher Dispatcher, log logger.LoggerInterface) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.ExhaustedPause <= 0 {
		cfg.ExhaustedPause = time.Minute
	}
	return &Scheduler{
		cfg:        cfg,
		detector:   detector,
		chain:      chain,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Run executes the first cycle immediately and then one per interval until
// ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info(ctx, "scheduler started", "interval", s.cfg.Interval.String())

	s.tick(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "scheduler stopping", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// RunOnce executes a single cycle.
func (s *Scheduler) RunOnce(ctx context.Context) (CycleReport, error) {
	report, err := s.detector.RunCycle(ctx)
	s.lastCycle.Store(time.Now().UnixNano())
	return report, err
}

func (s *Scheduler) tick(ctx context.Context) {
	report, err := s.RunOnce(ctx)

	if every := s.cfg.ResetCountersEvery; every > 0 && report.Cycle%uint64(every) == 0 {
		s.logger.Info(ctx, "resetting detector counters", "cycle", report.Cycle)
		s.detector.ResetCounters()
	}

	switch {
	case err == nil, ctx.Err() != nil:
	case PoolUnavailable(err):
		s.recoverPool(ctx, err)
	default:
		s.logger.Error(ctx, "cycle failed", "cycle", report.Cycle, "error", err)
	}
}

// recoverPool alerts, waits out the exhausted pause and re-probes the
// candidate endpoints.
func (s *Scheduler) recoverPool(ctx context.Context, cause error) {
	s.logger.Error(ctx, "endpoint pool unavailable, pausing polling",
		"pause", s.cfg.ExhaustedPause.String(),
		"error", cause,
	)

	msg := fmt.Sprintf("Endpoint pool unavailable: %v. Polling paused for %s before re-probing endpoints.",
		cause, s.cfg.ExhaustedPause)
	if err := s.dispatcher.Alert(ctx, msg); err != nil {
		s.logger.Warn(ctx, "failed to send pool alert", "error", err)
	}

	if err := ratelimit.Pause(ctx, s.cfg.ExhaustedPause); err != nil {
		return
	}

	if err := s.chain.Reinitialize(ctx); err != nil {
		s.logger.Error(ctx, "endpoint pool re-probe failed", "error", err)
		return
	}
	s.logger.Info(ctx, "endpoint pool re-initialized", "size", s.chain.Status().Size)
}

// HealthCheck reports whether cycles are still completing on schedule.
func (s *Scheduler) HealthCheck(ctx context.Context) (bool, string) {
	last := s.lastCycle.Load()
	if last == 0 {
		return false, "no cycle completed yet"
	}

	age := time.Since(time.Unix(0, last))
	limit := 3*s.cfg.Interval + s.cfg.ExhaustedPause
	if age > limit {
		return false, fmt.Sprintf("last cycle %s ago exceeds %s", age.Round(time.Second), limit)
	}
	return true, fmt.Sprintf("last cycle %s ago", age.Round(time.Second))
}
