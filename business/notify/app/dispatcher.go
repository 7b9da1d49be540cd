package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	arbitrageDomain "github.com/fd1az/dex-spread-monitor/business/arbitrage/domain"
	"github.com/fd1az/dex-spread-monitor/business/notify/domain"
	"github.com/fd1az/dex-spread-monitor/internal/apperror"
	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/dex-spread-monitor/business/notify"
	meterName  = "github.com/fd1az/dex-spread-monitor/business/notify"
)

// Dispatcher fans alerts out to every sender. Opportunity alerts pass the
// dedup cache first.
type Dispatcher struct {
	senders []Sender
	dedup   *Dedup
	timeout time.Duration
	logger  logger.LoggerInterface

	tracer trace.Tracer
	meter  metric.Meter

	sentCounter       metric.Int64Counter
	suppressedCounter metric.Int64Counter
	failedCounter     metric.Int64Counter
}

// NewDispatcher creates a new Dispatcher. A zero timeout means 10s.
func NewDispatcher(senders []Sender, dedup *Dedup, timeout time.Duration, log logger.LoggerInterface) (*Dispatcher, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	d := &Dispatcher{
		senders: senders,
		dedup:   dedup,
		timeout: timeout,
		logger:  log,
		tracer:  otel.Tracer(tracerName),
		meter:   otel.Meter(meterName),
	}
	if err := d.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}
	return d, nil
}

func (d *Dispatcher) initMetrics() error {
	var err error

	d.sentCounter, err = d.meter.Int64Counter(
		"notify_sent_total",
		metric.WithDescription("Alerts delivered, by sender"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	d.suppressedCounter, err = d.meter.Int64Counter(
		"notify_suppressed_total",
		metric.WithDescription("Opportunity alerts suppressed as duplicates"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return err
	}

	d.failedCounter, err = d.meter.Int64Counter(
		"notify_failed_total",
		metric.WithDescription("Failed deliveries, by sender"),
		metric.WithUnit("{alert}"),
	)
	return err
}

// Senders returns the configured sender names.
func (d *Dispatcher) Senders() []string {
	names := make([]string, 0, len(d.senders))
	for _, s := range d.senders {
		names = append(names, s.Name())
	}
	return names
}

// Dispatch sends an opportunity alert unless an equivalent one went out
// within the cooldown. A failed delivery releases the dedup stamp so the
// next cycle can retry.
func (d *Dispatcher) Dispatch(ctx context.Context, opp *arbitrageDomain.Opportunity) (bool, error) {
	key := domain.DedupKey(opp)

	ctx, span := d.tracer.Start(ctx, "notify.Dispatch",
		trace.WithAttributes(
			attribute.String("dedup_key", key),
			attribute.String("opportunity_id", opp.ID),
		),
	)
	defer span.End()

	claim, duplicate := d.dedup.Check(key)
	if duplicate {
		d.suppressedCounter.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("duplicate", true))
		span.SetStatus(codes.Ok, "suppressed")
		d.logger.Debug(ctx, "alert suppressed", "key", key)
		return false, nil
	}

	if err := d.fanOut(ctx, domain.FormatOpportunity(opp)); err != nil {
		d.dedup.Release(claim)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return false, err
	}

	span.SetStatus(codes.Ok, "sent")
	d.logger.Info(ctx, "opportunity alert sent",
		"pair", opp.Pair(),
		"spread_bps", opp.Spread.BasisPoints.StringFixed(2),
		"adjusted_usd", opp.AdjustedProfit.StringFixed(2),
	)
	return true, nil
}

// Alert sends a plain operational message, bypassing dedup.
func (d *Dispatcher) Alert(ctx context.Context, message string) error {
	ctx, span := d.tracer.Start(ctx, "notify.Alert")
	defer span.End()

	if err := d.fanOut(ctx, domain.Operational(message)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	span.SetStatus(codes.Ok, "sent")
	return nil
}

// fanOut delivers msg to every sender concurrently within the timeout. It
// succeeds when at least one sender succeeded or none are configured.
func (d *Dispatcher) fanOut(ctx context.Context, msg domain.Message) error {
	if len(d.senders) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	var (
		g         errgroup.Group
		delivered atomic.Int32
		errs      = make([]error, len(d.senders))
	)
	for i, s := range d.senders {
		g.Go(func() error {
			attrs := metric.WithAttributes(attribute.String("sender", s.Name()))
			if err := s.Send(ctx, msg); err != nil {
				d.failedCounter.Add(ctx, 1, attrs)
				d.logger.Warn(ctx, "sender failed", "sender", s.Name(), "error", err)
				errs[i] = fmt.Errorf("%s: %w", s.Name(), err)
				return nil
			}
			d.sentCounter.Add(ctx, 1, attrs)
			delivered.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	if delivered.Load() > 0 {
		return nil
	}

	cause := errors.Join(errs...)
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperror.New(apperror.CodeNotifyTimeout,
			apperror.WithContext(d.timeout.String()),
			apperror.WithCause(cause))
	}
	return apperror.New(apperror.CodeNotifyFailed, apperror.WithCause(cause))
}
