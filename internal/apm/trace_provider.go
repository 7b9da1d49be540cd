// Package apm configures OpenTelemetry tracing.
package apm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

type Provider string

const (
	ZipkinProvider   Provider = "zipkin"
	OTLPGRPCProvider Provider = "otlp-grpc"
	OTLPHTTPProvider Provider = "otlp-http"
	ConsoleProvider  Provider = "console"
	EmptyProvider    Provider = "none"
)

type TraceProvider interface {
	Stop() error
}

// Config selects and configures the span exporter.
type Config struct {
	Provider    Provider
	ServiceName string
	Endpoint    string
	Headers     string // "key=value,key2=value2"
}

type traceProvider struct {
	tp *sdktrace.TracerProvider
}

type emptyProvider struct{}

func (emptyProvider) Stop() error { return nil }

// NewTraceProvider installs a global tracer provider for cfg. Unknown or
// empty providers yield a no-op provider.
func NewTraceProvider(cfg Config, log logger.LoggerInterface) (TraceProvider, error) {
	exp, err := newExporter(cfg)
	if err != nil {
		return nil, fmt.Errorf("create %s exporter: %w", cfg.Provider, err)
	}
	if exp == nil {
		log.Warn(context.Background(), "tracing disabled", "provider", string(cfg.Provider))
		return emptyProvider{}, nil
	}

	rsrc, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(cfg.ServiceName),
			attribute.String("otel.provider", string(cfg.Provider)),
		))
	if err != nil {
		rsrc = resource.Default()
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(rsrc),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		))

	log.Info(context.Background(), "tracing initialized", "provider", string(cfg.Provider), "endpoint", cfg.Endpoint)
	return &traceProvider{tp}, nil
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	ctx := context.Background()

	switch cfg.Provider {
	case ZipkinProvider:
		return zipkin.New(cfg.Endpoint)
	case OTLPGRPCProvider:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithHeaders(ParseHeaders(cfg.Headers))}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracegrpc.WithEndpointURL(cfg.Endpoint))
		}
		return otlptracegrpc.New(ctx, opts...)
	case OTLPHTTPProvider:
		opts := []otlptracehttp.Option{otlptracehttp.WithHeaders(ParseHeaders(cfg.Headers))}
		if cfg.Endpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpointURL(cfg.Endpoint))
		}
		return otlptracehttp.New(ctx, opts...)
	case ConsoleProvider:
		return stdouttrace.New(stdouttrace.WithPrettyPrint())
	default:
		return nil, nil
	}
}

// ParseHeaders parses "k=v,k2=v2". Malformed pairs are skipped.
func ParseHeaders(s string) map[string]string {
	headers := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || k == "" {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func (o *traceProvider) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5) //nolint:gomnd
	defer cancel()

	return o.tp.Shutdown(ctx)
}
