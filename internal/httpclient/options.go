// Package httpclient provides an instrumented HTTP client with OTEL tracing and metrics.
package httpclient

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// ClientOptions holds configuration for the instrumented HTTP client.
type ClientOptions struct {
	client         *http.Client
	meterProvider  metric.MeterProvider
	providerName   string
	roundTripper   http.RoundTripper
	requestTimeout *time.Duration
	headers        map[string]string
	tracer         trace.Tracer
	redact         []string
}

// ClientOption is a function that configures ClientOptions.
type ClientOption func(*ClientOptions)

// NewClientOptions creates ClientOptions from variadic options.
func NewClientOptions(opts ...ClientOption) *ClientOptions {
	options := &ClientOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// WithHTTPClient uses an existing http.Client, e.g. an httptest server client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(o *ClientOptions) {
		o.client = c
	}
}

// WithMeterProvider sets the OTEL meter provider.
func WithMeterProvider(mp metric.MeterProvider) ClientOption {
	return func(o *ClientOptions) {
		o.meterProvider = mp
	}
}

// WithProviderName sets the provider name for metrics and traces.
func WithProviderName(name string) ClientOption {
	return func(o *ClientOptions) {
		o.providerName = name
	}
}

// WithRoundTripper sets a custom HTTP transport.
func WithRoundTripper(rt http.RoundTripper) ClientOption {
	return func(o *ClientOptions) {
		o.roundTripper = rt
	}
}

// WithRequestTimeout sets the request timeout.
func WithRequestTimeout(timeout time.Duration) ClientOption {
	return func(o *ClientOptions) {
		o.requestTimeout = &timeout
	}
}

// WithHeaders sets default headers for all requests.
func WithHeaders(headers map[string]string) ClientOption {
	return func(o *ClientOptions) {
		o.headers = headers
	}
}

// WithTracer sets the tracer used for request spans.
func WithTracer(tracer trace.Tracer) ClientOption {
	return func(o *ClientOptions) {
		o.tracer = tracer
	}
}

// WithRedactedValues masks each non-empty value wherever it appears in a
// URL recorded on spans. Bot tokens and webhook secrets go here.
func WithRedactedValues(values ...string) ClientOption {
	return func(o *ClientOptions) {
		for _, v := range values {
			if v != "" {
				o.redact = append(o.redact, v)
			}
		}
	}
}

// RequestOptions holds per-request configuration.
type RequestOptions struct {
	responseErrorHandler ResponseErrorHandler
}

// RequestOption configures a single request.
type RequestOption func(*RequestOptions)

// NewRequestOptions creates RequestOptions from variadic options.
func NewRequestOptions(opts ...RequestOption) *RequestOptions {
	options := &RequestOptions{}
	for _, o := range opts {
		o(options)
	}
	return options
}

// ResponseErrorHandler is a function that determines if a response is an error.
type ResponseErrorHandler func(statusCode int, body []byte) error

// WithResponseErrorHandler sets a custom error handler for responses.
func WithResponseErrorHandler(handler ResponseErrorHandler) RequestOption {
	return func(o *RequestOptions) {
		o.responseErrorHandler = handler
	}
}
