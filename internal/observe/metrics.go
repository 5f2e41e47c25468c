// Package observe provides application-wide observability primitives for the
// Rio voice bridge: OpenTelemetry metrics, distributed tracing, structured
// logging, and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all riobridge metrics.
const meterName = "github.com/yexis-labs/riobridge"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TranscodeDuration tracks per-chunk transcode latency. Use with attribute:
	//   attribute.String("direction", "inbound"|"outbound")
	TranscodeDuration metric.Float64Histogram

	// ToolDuration tracks tool dispatch latency per invocation. Use with
	// attribute: attribute.String("tool", ...)
	ToolDuration metric.Float64Histogram

	// --- Counters ---

	// ToolCalls counts tool invocations. Use with attributes:
	//   attribute.String("tool", ...), attribute.String("status", ...)
	ToolCalls metric.Int64Counter

	// FramesDropped counts audio frames discarded without processing. Use with
	// attributes:
	//   attribute.String("direction", ...), attribute.String("reason", ...)
	FramesDropped metric.Int64Counter

	// CallTeardowns counts completed call sessions by teardown reason. Use
	// with attribute: attribute.String("reason", ...)
	CallTeardowns metric.Int64Counter

	// SessionErrors counts terminal generative-session errors.
	SessionErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveCalls tracks the number of currently bridged call sessions.
	ActiveCalls metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) optimised
// for real-time audio-path latencies.
var latencyBuckets = []float64{
	0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TranscodeDuration, err = m.Float64Histogram("riobridge.transcode.duration",
		metric.WithDescription("Per-chunk audio transcode latency by direction."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.ToolDuration, err = m.Float64Histogram("riobridge.tool.duration",
		metric.WithDescription("Tool dispatch latency per invocation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.ToolCalls, err = m.Int64Counter("riobridge.tool.calls",
		metric.WithDescription("Total tool invocations by tool name and status."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("riobridge.frames.dropped",
		metric.WithDescription("Audio frames discarded without processing, by direction and reason."),
	); err != nil {
		return nil, err
	}
	if met.CallTeardowns, err = m.Int64Counter("riobridge.call.teardowns",
		metric.WithDescription("Completed call sessions by teardown reason."),
	); err != nil {
		return nil, err
	}
	if met.SessionErrors, err = m.Int64Counter("riobridge.session.errors",
		metric.WithDescription("Terminal generative-session errors."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveCalls, err = m.Int64UpDownCounter("riobridge.active_calls",
		metric.WithDescription("Number of currently bridged call sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("riobridge.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordToolCall is a convenience method that records a tool call counter
// increment with the standard attribute set.
func (m *Metrics) RecordToolCall(ctx context.Context, tool, status string) {
	m.ToolCalls.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("tool", tool),
			attribute.String("status", status),
		),
	)
}

// RecordFrameDropped is a convenience method that records one discarded audio
// frame with the standard attribute set.
func (m *Metrics) RecordFrameDropped(ctx context.Context, direction, reason string) {
	m.FramesDropped.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("direction", direction),
			attribute.String("reason", reason),
		),
	)
}

// RecordTeardown is a convenience method that records one completed call
// session with its teardown reason.
func (m *Metrics) RecordTeardown(ctx context.Context, reason string) {
	m.CallTeardowns.Add(ctx, 1,
		metric.WithAttributes(attribute.String("reason", reason)),
	)
}
