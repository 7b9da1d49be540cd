package cache

import (
	"context"
	"testing"
	"time"
)

func TestCache_ExpiresByAge(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c := New[string, int](0).WithClock(func() time.Time { return now })
	defer c.Close()

	c.Set(ctx, "k", 7, 20*time.Second)

	if v, ok := c.Get(ctx, "k"); !ok || v != 7 {
		t.Fatalf("Get = (%d, %v), want (7, true)", v, ok)
	}

	now = now.Add(19 * time.Second)
	if _, ok := c.Get(ctx, "k"); !ok {
		t.Error("entry expired too early")
	}

	now = now.Add(time.Second)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Error("entry should be expired at ttl")
	}
}

func TestCache_EvictExpired(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	c := New[string, string](0).WithClock(func() time.Time { return now })
	defer c.Close()

	c.Set(ctx, "short", "a", time.Second)
	c.Set(ctx, "long", "b", time.Hour)

	now = now.Add(time.Minute)
	c.evictExpired()

	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}
	if _, ok := c.Get(ctx, "long"); !ok {
		t.Error("long-lived entry evicted")
	}
}

func TestCache_DeleteAndCloseTwice(t *testing.T) {
	ctx := context.Background()
	c := New[int, int](time.Millisecond)

	c.Set(ctx, 1, 1, time.Minute)
	c.Delete(ctx, 1)
	if _, ok := c.Get(ctx, 1); ok {
		t.Error("expected deleted entry to be gone")
	}

	c.Close()
	c.Close()
}
