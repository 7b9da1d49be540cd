package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// maxResponseBody bounds how much of a response is read.
const maxResponseBody = 1 << 20

// Request is the interface for building and executing HTTP requests.
type Request interface {
	Get(ctx context.Context, url string) (*Response, error)
	Post(ctx context.Context, url string) (*Response, error)

	SetBody(body any) Request
	SetHeader(key, value string) Request
	SetQueryParam(key, value string) Request
	SetResult(result any) Request
}

// Response wraps http.Response with additional helpers.
type Response struct {
	*http.Response
	body   []byte
	result any
}

// Body returns the response body as bytes.
func (r *Response) Body() []byte {
	return r.body
}

// String returns the response body as string.
func (r *Response) String() string {
	return string(r.body)
}

// IsSuccess returns true for 2xx responses.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Result returns the unmarshaled result, or nil when decoding failed.
func (r *Response) Result() any {
	return r.result
}

// requestBuilder implements Request.
type requestBuilder struct {
	client       *InstrumentedClient
	headers      map[string]string
	query        url.Values
	body         any
	result       any
	errorHandler ResponseErrorHandler
}

// Get executes a GET request.
func (r *requestBuilder) Get(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodGet, url)
}

// Post executes a POST request.
func (r *requestBuilder) Post(ctx context.Context, url string) (*Response, error) {
	return r.execute(ctx, http.MethodPost, url)
}

// SetBody sets the request body (JSON encoded unless bytes, string or reader).
func (r *requestBuilder) SetBody(body any) Request {
	r.body = body
	return r
}

// SetHeader sets a single header.
func (r *requestBuilder) SetHeader(key, value string) Request {
	r.headers[key] = value
	return r
}

// SetQueryParam sets a single query parameter.
func (r *requestBuilder) SetQueryParam(key, value string) Request {
	if r.query == nil {
		r.query = url.Values{}
	}
	r.query.Set(key, value)
	return r
}

// SetResult sets the result struct for JSON unmarshaling.
func (r *requestBuilder) SetResult(result any) Request {
	r.result = result
	return r
}

func (r *requestBuilder) bodyReader() (io.Reader, error) {
	switch b := r.body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.NewReader(b), nil
	case string:
		return bytes.NewReader([]byte(b)), nil
	case io.Reader:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		if _, ok := r.headers["Content-Type"]; !ok {
			r.headers["Content-Type"] = "application/json"
		}
		return bytes.NewReader(data), nil
	}
}

// execute performs the HTTP request with instrumentation.
func (r *requestBuilder) execute(ctx context.Context, method, rawURL string) (*Response, error) {
	c := r.client

	ctx, span := c.tracer.Start(ctx, "http.request",
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", c.redactURL(rawURL)),
			attribute.String("provider", c.providerName),
		),
	)
	defer span.End()

	fullURL := rawURL
	if len(r.query) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return nil, r.fail(ctx, span, fmt.Errorf("invalid url: %w", err))
		}
		q := u.Query()
		for k, vs := range r.query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
		fullURL = u.String()
	}

	body, err := r.bodyReader()
	if err != nil {
		return nil, r.fail(ctx, span, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, r.fail(ctx, span, fmt.Errorf("failed to create request: %w", err))
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, r.fail(ctx, span, err)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	resp.Body.Close()
	if err != nil {
		return nil, r.fail(ctx, span, fmt.Errorf("failed to read response body: %w", err))
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	response := &Response{Response: resp, body: data}

	if r.result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, r.result); err != nil {
			span.RecordError(err)
		} else {
			response.result = r.result
		}
	}

	if r.errorHandler != nil {
		if handlerErr := r.errorHandler(resp.StatusCode, data); handlerErr != nil {
			r.recordMetrics(ctx, false)
			span.SetStatus(codes.Error, handlerErr.Error())
			return response, handlerErr
		}
	}

	r.recordMetrics(ctx, response.IsSuccess())
	span.SetStatus(codes.Ok, "")
	return response, nil
}

// fail records err on the span and the request counter. Transport errors
// quote the URL, so the returned error is redacted.
func (r *requestBuilder) fail(ctx context.Context, span trace.Span, err error) error {
	var netErr net.Error
	if errors.Is(err, context.Canceled) {
		span.SetAttributes(attribute.Bool("context.cancelled", true))
	}
	if errors.As(err, &netErr) && netErr.Timeout() {
		span.SetAttributes(attribute.Bool("request.timeout", true))
	}

	err = r.client.redactErr(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	r.recordMetrics(ctx, false)
	return err
}

// recordMetrics increments the request counter.
func (r *requestBuilder) recordMetrics(ctx context.Context, success bool) {
	r.client.requestCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", r.client.providerName),
		attribute.Bool("success", success),
	))
}
