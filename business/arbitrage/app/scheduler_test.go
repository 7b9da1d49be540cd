package app

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/asset"
)

func TestScheduler_RunsFirstCycleImmediatelyAndStopsOnCancel(t *testing.T) {
	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: asset.PolygonWETH}}}, newFakeQuoter("A", "B"))
	s := NewScheduler(SchedulerConfig{Interval: time.Hour}, f.detector, f.chain, f.dispatcher, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-f.reporter.cycles:
	case <-time.After(2 * time.Second):
		t.Fatal("first cycle did not run immediately")
	}

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: asset.PolygonWETH}}}, newFakeQuoter("A", "B"))
	s := NewScheduler(SchedulerConfig{Interval: 10 * time.Millisecond}, f.detector, f.chain, f.dispatcher, nopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-f.reporter.cycles:
		case <-time.After(2 * time.Second):
			t.Fatalf("cycle %d did not run", i+1)
		}
	}
}

func TestScheduler_RecoversExhaustedPool(t *testing.T) {
	weth := asset.PolygonWETH
	q := newFakeQuoter("A", "B")
	q.fail(weth, "A", apperror.New(apperror.CodeEndpointPoolExhausted))

	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: weth}}}, q)
	s := NewScheduler(SchedulerConfig{
		Interval:       time.Hour,
		ExhaustedPause: 5 * time.Millisecond,
	}, f.detector, f.chain, f.dispatcher, nopLogger{})

	s.tick(context.Background())

	if got := f.dispatcher.alertCount(); got != 1 {
		t.Errorf("alerts = %d, want 1", got)
	}
	if got := f.chain.reinits.Load(); got != 1 {
		t.Errorf("reinitializations = %d, want 1", got)
	}
}

func TestScheduler_CancelDuringPauseSkipsReinitialize(t *testing.T) {
	weth := asset.PolygonWETH
	q := newFakeQuoter("A", "B")
	q.fail(weth, "A", apperror.New(apperror.CodeEndpointPoolExhausted))

	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: weth}}}, q)
	s := NewScheduler(SchedulerConfig{
		Interval:       time.Hour,
		ExhaustedPause: time.Hour,
	}, f.detector, f.chain, f.dispatcher, nopLogger{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s.recoverPool(ctx, apperror.New(apperror.CodeEndpointPoolExhausted))

	if got := f.chain.reinits.Load(); got != 0 {
		t.Errorf("reinitializations = %d, want 0", got)
	}
}

func TestScheduler_ResetsCounters(t *testing.T) {
	weth := asset.PolygonWETH
	q := newFakeQuoter("A", "B")
	q.set(weth, "A", "2845.30", "45000")
	q.set(weth, "B", "2851.75", "38000")

	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: weth}}}, q)
	s := NewScheduler(SchedulerConfig{Interval: time.Hour, ResetCountersEvery: 2}, f.detector, f.chain, f.dispatcher, nopLogger{})

	s.tick(context.Background())
	if got := f.detector.Stats().Checks; got != 1 {
		t.Fatalf("Checks after 1 cycle = %d, want 1", got)
	}

	s.tick(context.Background())
	stats := f.detector.Stats()
	if stats.Checks != 0 {
		t.Errorf("Checks after reset = %d, want 0", stats.Checks)
	}
	if stats.Cycles != 2 {
		t.Errorf("Cycles = %d, want 2", stats.Cycles)
	}
}

func TestScheduler_HealthCheck(t *testing.T) {
	f := newFixture(t, DetectorConfig{Tokens: []TrackedToken{{Asset: asset.PolygonWETH}}}, newFakeQuoter("A", "B"))
	s := NewScheduler(SchedulerConfig{Interval: time.Minute}, f.detector, f.chain, f.dispatcher, nopLogger{})

	if ok, _ := s.HealthCheck(context.Background()); ok {
		t.Error("healthy before the first cycle")
	}

	if _, err := s.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	if ok, msg := s.HealthCheck(context.Background()); !ok {
		t.Errorf("unhealthy after a cycle: %s", msg)
	}
}
