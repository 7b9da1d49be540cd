package apm

import (
	"context"
	"testing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestParseHeaders(t *testing.T) {
	tests := []struct {
		in   string
		want map[string]string
	}{
		{"", map[string]string{}},
		{"x-honeycomb-team=abc", map[string]string{"x-honeycomb-team": "abc"}},
		{"a=1, b = 2 ,broken", map[string]string{"a": "1", "b": "2"}},
		{"token=a=b", map[string]string{"token": "a=b"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := ParseHeaders(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("ParseHeaders(%q) = %v, want %v", tt.in, got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %q, want %q", k, got[k], v)
				}
			}
		})
	}
}

func TestTraceID(t *testing.T) {
	if got := TraceID(context.Background()); got != "" {
		t.Errorf("TraceID without span = %q", got)
	}

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())

	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	if got := TraceID(ctx); got != span.SpanContext().TraceID().String() || len(got) != 32 {
		t.Errorf("TraceID = %q", got)
	}
}
