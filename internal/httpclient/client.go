package httpclient

import (
	"context"
	"net"
	"net/http"
	"net/http/httptrace"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Default connection pool settings
	defaultDialKeepAlive         = 10 * time.Second
	defaultRequestTimeout        = 10 * time.Second
	defaultMaxConnsPerHost       = 4
	defaultIdleConnTimeout       = 2 * time.Minute
	defaultExpectContinueTimeout = 100 * time.Millisecond

	metricRequestCounter = "http_client_requests_total"
	instrumentationName  = "github.com/fd1az/dex-spread-monitor/internal/httpclient"
)

// Client is the interface for making HTTP requests.
type Client interface {
	// NewRequest creates a new request with default options.
	NewRequest() Request
	// NewRequestWithOptions creates a new request with custom options.
	NewRequestWithOptions(opts ...RequestOption) Request
}

// InstrumentedClient wraps http.Client with OTEL instrumentation.
type InstrumentedClient struct {
	client         *http.Client
	requestCounter metric.Int64Counter
	providerName   string
	tracer         trace.Tracer
	defaultHeaders map[string]string
	redactor       *strings.Replacer
}

// NewInstrumentedClient creates a new instrumented HTTP client.
func NewInstrumentedClient(opts ...ClientOption) (*InstrumentedClient, error) {
	options := NewClientOptions(opts...)

	httpClient := options.client
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	if options.roundTripper != nil {
		httpClient.Transport = options.roundTripper
	} else if httpClient.Transport == nil {
		httpClient.Transport = &http.Transport{
			DialContext: (&net.Dialer{
				KeepAlive: defaultDialKeepAlive,
			}).DialContext,
			MaxConnsPerHost:       defaultMaxConnsPerHost,
			IdleConnTimeout:       defaultIdleConnTimeout,
			ExpectContinueTimeout: defaultExpectContinueTimeout,
		}
	}

	if options.requestTimeout != nil {
		httpClient.Timeout = *options.requestTimeout
	}

	httpClient.Transport = otelhttp.NewTransport(
		httpClient.Transport,
		otelhttp.WithClientTrace(func(ctx context.Context) *httptrace.ClientTrace {
			return otelhttptrace.NewClientTrace(ctx)
		}),
	)

	providerName := options.providerName
	if providerName == "" {
		providerName = "default"
	}

	meterProvider := options.meterProvider
	if meterProvider == nil {
		meterProvider = otel.GetMeterProvider()
	}
	meter := meterProvider.Meter(
		instrumentationName,
		metric.WithInstrumentationAttributes(attribute.String("provider", providerName)),
	)

	requestCounter, err := meter.Int64Counter(
		metricRequestCounter,
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	tracer := options.tracer
	if tracer == nil {
		tracer = otel.GetTracerProvider().Tracer(instrumentationName)
	}

	var redactor *strings.Replacer
	if len(options.redact) > 0 {
		pairs := make([]string, 0, 2*len(options.redact))
		for _, v := range options.redact {
			pairs = append(pairs, v, "*****")
		}
		redactor = strings.NewReplacer(pairs...)
	}

	return &InstrumentedClient{
		client:         httpClient,
		requestCounter: requestCounter,
		providerName:   providerName,
		tracer:         tracer,
		defaultHeaders: options.headers,
		redactor:       redactor,
	}, nil
}

// NewRequest creates a new request builder with default options.
func (c *InstrumentedClient) NewRequest() Request {
	return c.NewRequestWithOptions()
}

// NewRequestWithOptions creates a new request builder with custom options.
func (c *InstrumentedClient) NewRequestWithOptions(opts ...RequestOption) Request {
	reqOpts := NewRequestOptions(opts...)

	return &requestBuilder{
		client:       c,
		headers:      copyHeaders(c.defaultHeaders),
		errorHandler: reqOpts.responseErrorHandler,
	}
}

// redactURL masks configured secrets.
func (c *InstrumentedClient) redactURL(u string) string {
	if c.redactor == nil {
		return u
	}
	return c.redactor.Replace(u)
}

// copyHeaders creates a copy of a headers map.
func copyHeaders(src map[string]string) map[string]string {
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
