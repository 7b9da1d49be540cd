package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/fd1az/dex-spread-monitor/business/blockchain/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/circuitbreaker"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
	"github.com/fd1az/dex-spread-monitor/internal/ratelimit"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/blockchain"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/blockchain"
)

// PoolConfig holds endpoint pool settings.
type PoolConfig struct {
	ChainID          uint64
	ProbeConcurrency int
	TargetSize       int
	ProbeTimeout     time.Duration
	CallTimeout      time.Duration

	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	RequestsPerSecond float64
	RequestBurst      int
}

// DefaultPoolConfig returns sensible defaults for chainID.
func DefaultPoolConfig(chainID uint64) PoolConfig {
	return PoolConfig{
		ChainID:           chainID,
		ProbeConcurrency:  8,
		TargetSize:        5,
		ProbeTimeout:      5 * time.Second,
		CallTimeout:       10 * time.Second,
		InitialBackoff:    200 * time.Millisecond,
		MaxBackoff:        2 * time.Second,
		RequestsPerSecond: 25,
		RequestBurst:      5,
	}
}

type poolMetrics struct {
	calls     metric.Int64Counter
	failovers metric.Int64Counter
	latency   metric.Float64Histogram
	probes    metric.Int64Counter
}

type member struct {
	endpoint domain.Endpoint
	client   Client
	breaker  *circuitbreaker.CircuitBreaker[any]
}

// Pool keeps a validated set of RPC endpoints for one chain and routes every
// upstream call through the active one, failing over on transport errors.
type Pool struct {
	cfg     PoolConfig
	dialer  Dialer
	logger  logger.LoggerInterface
	limiter *ratelimit.Limiter

	mu         sync.RWMutex
	members    []*member
	active     int
	candidates []string

	rotateMu  sync.Mutex
	failovers atomic.Uint64

	tracer  trace.Tracer
	metrics *poolMetrics
}

// NewPool creates an empty pool. Call Initialize before use.
func NewPool(cfg PoolConfig, dialer Dialer, log logger.LoggerInterface) (*Pool, error) {
	if cfg.ProbeConcurrency <= 0 {
		cfg.ProbeConcurrency = 8
	}
	if cfg.TargetSize <= 0 {
		cfg.TargetSize = 5
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = 5 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}

	p := &Pool{
		cfg:     cfg,
		dialer:  dialer,
		logger:  log,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.RequestBurst),
		tracer:  otel.Tracer(tracerName),
	}

	if err := p.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	return p, nil
}

func (p *Pool) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	p.metrics = &poolMetrics{}

	p.metrics.calls, err = meter.Int64Counter(
		"rpc_calls_total",
		metric.WithDescription("Upstream RPC calls by operation and outcome"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return err
	}

	p.metrics.failovers, err = meter.Int64Counter(
		"rpc_failovers_total",
		metric.WithDescription("Endpoint rotations"),
		metric.WithUnit("{rotation}"),
	)
	if err != nil {
		return err
	}

	p.metrics.latency, err = meter.Float64Histogram(
		"rpc_call_latency_ms",
		metric.WithDescription("Upstream RPC call latency"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	p.metrics.probes, err = meter.Int64Counter(
		"rpc_probes_total",
		metric.WithDescription("Endpoint probes by result"),
		metric.WithUnit("{probe}"),
	)
	return err
}

// Initialize probes candidates concurrently and keeps the first TargetSize
// that answer with the expected chain id. It fails when none qualify.
func (p *Pool) Initialize(ctx context.Context, candidates []string) error {
	ctx, span := p.tracer.Start(ctx, "pool.initialize",
		trace.WithAttributes(attribute.Int("candidates", len(candidates))),
	)
	defer span.End()

	probeCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		mu       sync.Mutex
		accepted []*member
	)

	g, gctx := errgroup.WithContext(probeCtx)
	g.SetLimit(p.cfg.ProbeConcurrency)

	for _, url := range candidates {
		mu.Lock()
		full := len(accepted) >= p.cfg.TargetSize
		mu.Unlock()
		if full || gctx.Err() != nil {
			break
		}

		g.Go(func() error {
			m, err := p.probe(gctx, url)
			if err != nil {
				p.metrics.probes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "rejected")))
				p.logger.Debug(ctx, "endpoint rejected", "url", url, "error", err)
				return nil
			}
			p.metrics.probes.Add(ctx, 1, metric.WithAttributes(attribute.String("result", "accepted")))

			mu.Lock()
			defer mu.Unlock()
			if len(accepted) >= p.cfg.TargetSize {
				m.client.Close()
				return nil
			}
			accepted = append(accepted, m)
			if len(accepted) >= p.cfg.TargetSize {
				stop()
			}
			return nil
		})
	}
	_ = g.Wait()

	if len(accepted) == 0 {
		err := apperror.New(apperror.CodeEndpointPoolEmpty,
			apperror.WithContext(fmt.Sprintf("none of %d candidates answered for chain %d", len(candidates), p.cfg.ChainID)))
		span.RecordError(err)
		span.SetStatus(codes.Error, "no endpoints")
		return err
	}

	p.mu.Lock()
	old := p.members
	p.members = accepted
	p.active = 0
	p.candidates = append([]string(nil), candidates...)
	p.mu.Unlock()

	for _, m := range old {
		m.client.Close()
	}

	span.SetAttributes(attribute.Int("pool_size", len(accepted)))
	span.SetStatus(codes.Ok, "initialized")
	p.logger.Info(ctx, "endpoint pool ready",
		"size", len(accepted),
		"candidates", len(candidates),
		"active", accepted[0].endpoint.URL,
	)

	return nil
}

// Reinitialize probes the last candidate list again.
func (p *Pool) Reinitialize(ctx context.Context) error {
	p.mu.RLock()
	candidates := append([]string(nil), p.candidates...)
	p.mu.RUnlock()

	return p.Initialize(ctx, candidates)
}

func (p *Pool) probe(ctx context.Context, url string) (*member, error) {
	ctx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	client, err := p.dialer.Dial(ctx, url)
	if err != nil {
		return nil, apperror.New(apperror.CodeEndpointConnectionFailed, apperror.WithCause(err))
	}

	res, err := p.check(ctx, client)
	if err != nil {
		client.Close()
		return nil, err
	}

	m := &member{
		endpoint: domain.Endpoint{
			URL:         url,
			Healthy:     true,
			Latency:     res.Latency,
			BlockHeight: res.BlockHeight,
			LastChecked: time.Now(),
		},
		client: client,
	}
	m.breaker = p.newBreaker(url)

	return m, nil
}

// check verifies chain id and reads the head block.
func (p *Pool) check(ctx context.Context, client Client) (domain.ProbeResult, error) {
	start := time.Now()

	id, err := client.ChainID(ctx)
	if err != nil {
		return domain.ProbeResult{}, apperror.New(apperror.CodeEndpointConnectionFailed, apperror.WithCause(err))
	}
	if id.Uint64() != p.cfg.ChainID {
		return domain.ProbeResult{}, apperror.New(apperror.CodeEndpointWrongChain,
			apperror.WithContext(fmt.Sprintf("got chain %d, want %d", id.Uint64(), p.cfg.ChainID)))
	}

	height, err := client.BlockNumber(ctx)
	if err != nil {
		return domain.ProbeResult{}, apperror.New(apperror.CodeEndpointConnectionFailed, apperror.WithCause(err))
	}

	return domain.ProbeResult{
		ChainID:     id.Uint64(),
		BlockHeight: height,
		Latency:     time.Since(start),
	}, nil
}

func (p *Pool) newBreaker(url string) *circuitbreaker.CircuitBreaker[any] {
	cfg := circuitbreaker.DefaultConfig("rpc:" + url)
	cfg.IsSuccessful = func(err error) bool {
		return err == nil || !domain.IsTransport(err)
	}
	return circuitbreaker.New[any](cfg)
}

// Current returns the active endpoint.
func (p *Pool) Current() (domain.Endpoint, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.members) == 0 {
		return domain.Endpoint{}, apperror.New(apperror.CodeEndpointPoolEmpty)
	}
	return p.members[p.active].endpoint, nil
}

// Size returns the number of endpoints in the pool.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.members)
}

// Failovers returns how many rotations have happened.
func (p *Pool) Failovers() uint64 {
	return p.failovers.Load()
}

// Rotate moves to the next endpoint that passes re-validation.
func (p *Pool) Rotate(ctx context.Context) error {
	p.mu.RLock()
	from := p.active
	p.mu.RUnlock()

	return p.rotateFrom(ctx, from)
}

// rotateFrom advances past index from. When another caller already moved the
// active index away from it, the call is a no-op.
func (p *Pool) rotateFrom(ctx context.Context, from int) error {
	p.rotateMu.Lock()
	defer p.rotateMu.Unlock()

	ctx, span := p.tracer.Start(ctx, "pool.rotate")
	defer span.End()

	p.mu.RLock()
	n := len(p.members)
	current := p.active
	p.mu.RUnlock()

	if n == 0 {
		return apperror.New(apperror.CodeEndpointPoolEmpty)
	}
	if current != from {
		return nil
	}

	p.failovers.Add(1)
	p.metrics.failovers.Add(ctx, 1)

	for step := 1; step <= n; step++ {
		next := (from + step) % n

		p.mu.RLock()
		m := p.members[next]
		p.mu.RUnlock()

		checkCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
		res, err := p.check(checkCtx, m.client)
		cancel()

		if err != nil {
			p.mu.Lock()
			m.endpoint.Healthy = false
			m.endpoint.ConsecutiveFailures++
			m.endpoint.LastChecked = time.Now()
			p.mu.Unlock()

			p.logger.Warn(ctx, "endpoint failed revalidation", "url", m.endpoint.URL, "error", err)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			continue
		}

		p.mu.Lock()
		m.endpoint.Healthy = true
		m.endpoint.ConsecutiveFailures = 0
		m.endpoint.Latency = res.Latency
		m.endpoint.BlockHeight = res.BlockHeight
		m.endpoint.LastChecked = time.Now()
		p.active = next
		p.mu.Unlock()

		span.SetAttributes(attribute.Int("from", from), attribute.Int("to", next))
		p.logger.Info(ctx, "rotated endpoint", "from", from, "to", next, "url", m.endpoint.URL)
		return nil
	}

	err := apperror.New(apperror.CodeEndpointPoolExhausted,
		apperror.WithContext(fmt.Sprintf("all %d endpoints failed revalidation", n)))
	span.RecordError(err)
	span.SetStatus(codes.Error, "exhausted")
	return err
}

func (p *Pool) activeMember() (int, *member, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(p.members) == 0 {
		return 0, nil, apperror.New(apperror.CodeEndpointPoolEmpty)
	}
	return p.active, p.members[p.active], nil
}

func (p *Pool) markSuccess(m *member, latency time.Duration) {
	p.mu.Lock()
	m.endpoint.Healthy = true
	m.endpoint.ConsecutiveFailures = 0
	m.endpoint.Latency = latency
	p.mu.Unlock()
}

func (p *Pool) markFailure(m *member) {
	p.mu.Lock()
	m.endpoint.ConsecutiveFailures++
	p.mu.Unlock()
}

func (p *Pool) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	if p.cfg.InitialBackoff > 0 {
		bo.InitialInterval = p.cfg.InitialBackoff
	}
	if p.cfg.MaxBackoff > 0 {
		bo.MaxInterval = p.cfg.MaxBackoff
	}
	return bo
}

// Status returns a snapshot of the pool.
func (p *Pool) Status() domain.PoolStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := domain.PoolStatus{
		ActiveIndex: p.active,
		Size:        len(p.members),
		Failovers:   p.failovers.Load(),
		Endpoints:   make([]domain.Endpoint, 0, len(p.members)),
	}
	for i, m := range p.members {
		if i == p.active {
			st.Active = m.endpoint.URL
		}
		if m.endpoint.Healthy {
			st.Healthy++
		}
		st.Endpoints = append(st.Endpoints, m.endpoint)
	}
	return st
}

// HealthCheck reports whether the active endpoint is usable.
func (p *Pool) HealthCheck(_ context.Context) (bool, string) {
	st := p.Status()
	if st.Size == 0 {
		return false, "endpoint pool is empty"
	}
	if st.Healthy == 0 {
		return false, "no healthy endpoints"
	}
	return true, fmt.Sprintf("%d/%d healthy, active %s", st.Healthy, st.Size, st.Active)
}

// Close releases every client.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, m := range p.members {
		m.client.Close()
	}
	p.members = nil
	p.active = 0
}

// Call runs fn against the active endpoint. Transport failures rotate the pool
// and retry with exponential backoff, at most once per endpoint. The result is
// CodeEndpointPoolExhausted only when no endpoint passes re-validation. A call
// that keeps failing on healthy endpoints yields CodeRPCCallFailed, and one
// that exceeds the per-call bound wraps a *domain.TimeoutError. Any other error
// is returned as is.
func Call[T any](ctx context.Context, p *Pool, op string, fn func(ctx context.Context, c Client) (T, error)) (T, error) {
	var zero T

	ctx, span := p.tracer.Start(ctx, "rpc."+op)
	defer span.End()

	size := p.Size()
	if size == 0 {
		return zero, apperror.New(apperror.CodeEndpointPoolEmpty)
	}

	var lastErr error

	operation := func() (T, error) {
		if err := p.limiter.Wait(ctx); err != nil {
			return zero, backoff.Permanent(err)
		}

		idx, m, err := p.activeMember()
		if err != nil {
			return zero, backoff.Permanent(err)
		}

		start := time.Now()
		res, err := invoke(ctx, p, m, op, fn)
		elapsed := time.Since(start)
		p.metrics.latency.Record(ctx, float64(elapsed.Milliseconds()), metric.WithAttributes(attribute.String("op", op)))

		if err == nil {
			p.markSuccess(m, elapsed)
			p.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "ok")))
			return res, nil
		}

		if !domain.IsTransport(err) {
			p.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "error")))
			return zero, backoff.Permanent(err)
		}

		lastErr = err
		p.markFailure(m)
		p.metrics.calls.Add(ctx, 1, metric.WithAttributes(attribute.String("op", op), attribute.String("outcome", "transport")))
		p.logger.Warn(ctx, "transport failure, rotating", "op", op, "url", m.endpoint.URL, "error", err)

		if rerr := p.rotateFrom(ctx, idx); rerr != nil {
			return zero, backoff.Permanent(rerr)
		}
		return zero, err
	}

	res, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(p.newBackOff()),
		backoff.WithMaxTries(uint(size)),
	)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeEndpointPoolExhausted) && lastErr != nil {
			err = apperror.New(apperror.CodeEndpointPoolExhausted, apperror.WithCause(lastErr))
		} else if domain.IsTransport(err) && ctx.Err() == nil {
			// Every rotation re-validated, so the pool is fine and only this call failed.
			err = apperror.New(apperror.CodeRPCCallFailed,
				apperror.WithCause(err),
				apperror.WithContext(fmt.Sprintf("%s failed on %d endpoints", op, size)))
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, op+" failed")
		return zero, err
	}

	span.SetStatus(codes.Ok, "")
	return res, nil
}

func invoke[T any](ctx context.Context, p *Pool, m *member, op string, fn func(context.Context, Client) (T, error)) (T, error) {
	var zero T

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout)
	defer cancel()

	out, err := m.breaker.Execute(func() (any, error) {
		return fn(callCtx, m.client)
	})
	if err != nil {
		if ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			return zero, &domain.TimeoutError{Op: op, Endpoint: m.endpoint.URL, After: p.cfg.CallTimeout}
		}
		return zero, err
	}

	res, _ := out.(T)
	return res, nil
}
