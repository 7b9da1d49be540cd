package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fd1az/dex-spread-monitor/internal/ratelimit"
)

func TestLimiter_BurstThenBlock(t *testing.T) {
	l := ratelimit.New(1, 2)

	if !l.Allow() || !l.Allow() {
		t.Fatal("expected burst of 2 to be allowed")
	}
	if l.Allow() {
		t.Error("expected third immediate call to be rejected")
	}
}

func TestLimiter_UnlimitedWhenNonPositive(t *testing.T) {
	l := ratelimit.New(0, 1)
	for i := 0; i < 100; i++ {
		if !l.Allow() {
			t.Fatalf("call %d rejected by unlimited limiter", i)
		}
	}
}

func TestLimiter_WaitHonoursContext(t *testing.T) {
	l := ratelimit.New(0.001, 1)
	l.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Wait(ctx); err == nil {
		t.Error("expected Wait to fail once the deadline cannot be met")
	}
}

func TestPause(t *testing.T) {
	start := time.Now()
	if err := ratelimit.Pause(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if time.Since(start) < 5*time.Millisecond {
		t.Error("Pause returned early")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := ratelimit.Pause(ctx, time.Hour); !errors.Is(err, context.Canceled) {
		t.Errorf("Pause on cancelled ctx = %v, want context.Canceled", err)
	}
}
