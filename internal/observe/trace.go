package observe

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation scope for all bridge spans.
const tracerName = "github.com/yexis-labs/riobridge"

// Span names for the call-session paths. HTTP request spans are named by
// [Middleware]; these cover the work that happens inside a bridged call.
const (
	// SpanCallSession covers one relay run, from session setup to teardown.
	// Carries stream.sid and teardown.reason attributes once known.
	SpanCallSession = "call.session"

	// SpanToolDispatch covers one tool-call batch, dispatch through results.
	SpanToolDispatch = "tools.dispatch"
)

// Tracer returns the bridge's [trace.Tracer] from the globally registered
// provider.
func Tracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// StartSpan starts a span under the bridge tracer. The caller must call
// span.End() when done.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return Tracer().Start(ctx, name, opts...)
}

// CorrelationID returns the active trace ID, or the empty string when ctx
// carries no span. For HTTP requests this is the X-Correlation-ID header
// value, so an operator can go from a webhook response straight to the call
// session's spans and logs.
func CorrelationID(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		return sc.TraceID().String()
	}
	return ""
}

// Logger returns the default [slog.Logger] enriched with trace_id and
// span_id when ctx carries an active span. Relay legs log through this so a
// call's log lines correlate with its [SpanCallSession] span.
func Logger(ctx context.Context) *slog.Logger {
	l := slog.Default()
	sc := trace.SpanContextFromContext(ctx)
	if sc.HasTraceID() {
		l = l.With(
			slog.String("trace_id", sc.TraceID().String()),
			slog.String("span_id", sc.SpanID().String()),
		)
	}
	return l
}
