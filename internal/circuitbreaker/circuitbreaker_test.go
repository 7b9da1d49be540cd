package circuitbreaker_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/dex-spread-monitor/internal/circuitbreaker"
)

var errUpstream = errors.New("connection refused")
var errRevert = errors.New("execution reverted")

func TestCircuitBreaker_TripsAfterConsecutiveFailures(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("test")
	cfg.ConsecutiveFailures = 3
	cfg.OpenTimeout = time.Hour

	var transitions []gobreaker.State
	cfg.OnStateChange = func(name string, from, to gobreaker.State) {
		transitions = append(transitions, to)
	}

	cb := circuitbreaker.New[int](cfg)

	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (int, error) { return 0, errUpstream }); !errors.Is(err, errUpstream) {
			t.Fatalf("call %d: err = %v, want upstream error", i, err)
		}
	}

	if cb.State() != gobreaker.StateOpen {
		t.Fatalf("state = %s, want open", cb.State())
	}

	_, err := cb.Execute(func() (int, error) { return 1, nil })
	if !circuitbreaker.IsOpen(err) {
		t.Errorf("expected open-state rejection, got %v", err)
	}

	if len(transitions) != 1 || transitions[0] != gobreaker.StateOpen {
		t.Errorf("transitions = %v, want [open]", transitions)
	}
}

func TestCircuitBreaker_IsSuccessfulExcludesVenueErrors(t *testing.T) {
	cfg := circuitbreaker.DefaultConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, errRevert)
	}

	cb := circuitbreaker.New[int](cfg)

	for i := 0; i < 5; i++ {
		_, _ = cb.Execute(func() (int, error) { return 0, errRevert })
	}

	if cb.State() != gobreaker.StateClosed {
		t.Errorf("state = %s, want closed", cb.State())
	}
}
