// Package metrics configures the OpenTelemetry meter provider and the
// Prometheus scrape endpoint.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.10.0"

	"github.com/fd1az/dex-spread-monitor/internal/logger"
)

type MetricProvider interface {
	Meter(name string, options ...metric.MeterOption) metric.Meter
	Shutdown(ctx context.Context) error
}

func getReaders(ctx context.Context, cfg Config) ([]sdkmetric.Reader, error) {
	var readers []sdkmetric.Reader

	for _, provider := range cfg.Provider {
		switch provider.Provider {
		case PrometheusProvider:
			promExporter, err := prometheus.New()
			if err != nil {
				return nil, err
			}
			readers = append(readers, promExporter)

		case OtelCollector:
			opts := []otlpmetricgrpc.Option{
				otlpmetricgrpc.WithEndpointURL(provider.Endpoint),
				otlpmetricgrpc.WithHeaders(provider.Headers),
			}
			if provider.Insecure {
				opts = append(opts, otlpmetricgrpc.WithInsecure())
			}

			exp, err := otlpmetricgrpc.New(ctx, opts...)
			if err != nil {
				return nil, err
			}
			readers = append(readers, sdkmetric.NewPeriodicReader(exp))
		}
	}

	return readers, nil
}

// NewMetricProvider installs a global meter provider with the configured
// readers.
func NewMetricProvider(options ...OptionFn) (MetricProvider, error) {
	var cfg Config
	for _, opt := range options {
		cfg = opt(cfg)
	}

	readers, err := getReaders(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("create metric readers: %w", err)
	}

	metricsOps := []sdkmetric.Option{
		sdkmetric.WithResource(resource.NewSchemaless(semconv.ServiceNameKey.String(cfg.ServiceName))),
	}
	for _, reader := range readers {
		metricsOps = append(metricsOps, sdkmetric.WithReader(reader))
	}

	meterProvider := sdkmetric.NewMeterProvider(metricsOps...)
	otel.SetMeterProvider(meterProvider)

	return meterProvider, nil
}

// Server exposes /metrics for Prometheus.
type Server struct {
	srv    *http.Server
	logger logger.LoggerInterface
}

// NewServer creates a metrics server on port.
func NewServer(port int, log logger.LoggerInterface) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &Server{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: log,
	}
}

// Start serves in the background.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(context.Background(), "metrics server stopped", "error", err)
		}
	}()
	s.logger.Info(context.Background(), "prometheus metrics server started", "addr", s.srv.Addr)
}

// Stop shuts the server down.
func (s *Server) Stop(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
