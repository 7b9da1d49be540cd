// Package circuitbreaker wraps sony/gobreaker with project defaults.
package circuitbreaker

import (
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
)

// ErrOpen is returned while the breaker rejects calls.
var ErrOpen = gobreaker.ErrOpenState

// ErrTooManyRequests is returned when the half-open probe budget is used up.
var ErrTooManyRequests = gobreaker.ErrTooManyRequests

// Config holds breaker settings.
type Config struct {
	Name                string
	MaxHalfOpenRequests uint32
	Interval            time.Duration // closed-state counter reset period
	OpenTimeout         time.Duration // open -> half-open delay
	ConsecutiveFailures uint32        // trips after this many failures in a row

	// IsSuccessful decides whether an error counts against the breaker.
	// Nil means every non-nil error is a failure.
	IsSuccessful func(err error) bool

	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultConfig returns settings suited to upstream RPC calls.
func DefaultConfig(name string) Config {
	return Config{
		Name:                name,
		MaxHalfOpenRequests: 1,
		Interval:            time.Minute,
		OpenTimeout:         30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// CircuitBreaker is a typed breaker.
type CircuitBreaker[T any] struct {
	cb *gobreaker.CircuitBreaker[T]
}

// New builds a breaker from cfg.
func New[T any](cfg Config) *CircuitBreaker[T] {
	threshold := cfg.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}

	st := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxHalfOpenRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: cfg.OnStateChange,
		IsSuccessful:  cfg.IsSuccessful,
	}

	return &CircuitBreaker[T]{cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn unless the breaker is open.
func (c *CircuitBreaker[T]) Execute(fn func() (T, error)) (T, error) {
	return c.cb.Execute(fn)
}

// State returns the current breaker state.
func (c *CircuitBreaker[T]) State() gobreaker.State {
	return c.cb.State()
}

// Name returns the breaker name.
func (c *CircuitBreaker[T]) Name() string {
	return c.cb.Name()
}

// IsOpen reports whether err came from a rejecting breaker.
func IsOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
