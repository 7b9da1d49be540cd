package apm

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

// TraceID returns the trace id of the span in ctx, or "" when there is none.
// It matches logger.TraceIDFn.
func TraceID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
