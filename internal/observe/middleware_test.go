package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestMiddleware builds a middleware over isolated metric and trace
// providers and returns hooks for inspecting what it recorded.
func newTestMiddleware(t *testing.T, streamPaths ...string) (func(http.Handler) http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	origTP := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(origTP) })

	return Middleware(m, streamPaths...), reader, exp
}

// requestDurationPoints collects the recorded http.request.duration data
// points.
func requestDurationPoints(t *testing.T, reader *sdkmetric.ManualReader) []metricdata.HistogramDataPoint[float64] {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	met := findMetric(rm, "riobridge.http.request.duration")
	if met == nil {
		return nil
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("riobridge.http.request.duration is %T, want histogram", met.Data)
	}
	return hist.DataPoints
}

func TestMiddleware_WebhookRequestInstrumented(t *testing.T) {
	mw, reader, exp := newTestMiddleware(t)

	var capturedCID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCID = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/make-call", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedCID == "" || len(capturedCID) != 32 {
		t.Errorf("correlation ID in handler context = %q, want 32 hex chars", capturedCID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != capturedCID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, capturedCID)
	}

	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("spans recorded = %d, want 1", len(spans))
	}
	if spans[0].Name != "HTTP POST /make-call" {
		t.Errorf("span name = %q", spans[0].Name)
	}

	points := requestDurationPoints(t, reader)
	if len(points) != 1 || points[0].Count != 1 {
		t.Fatalf("duration data points = %+v, want one sample", points)
	}
	var foundMethod, foundPath bool
	for _, kv := range points[0].Attributes.ToSlice() {
		switch {
		case string(kv.Key) == "method" && kv.Value.AsString() == "POST":
			foundMethod = true
		case string(kv.Key) == "path" && kv.Value.AsString() == "/make-call":
			foundPath = true
		}
	}
	if !foundMethod || !foundPath {
		t.Errorf("sample attributes missing method/path: %v", points[0].Attributes.ToSlice())
	}
}

func TestMiddleware_StreamPathSkipsDurationHistogram(t *testing.T) {
	mw, reader, exp := newTestMiddleware(t, "/media-stream")

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))

	req := httptest.NewRequest("GET", "/media-stream", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	// The call-bearing request still gets a span and correlation ID but no
	// request-duration sample: the request lasts as long as the call.
	if rec.Header().Get("X-Correlation-ID") == "" {
		t.Error("stream request missing X-Correlation-ID")
	}
	if spans := exp.GetSpans(); len(spans) != 1 {
		t.Fatalf("spans recorded = %d, want 1", len(spans))
	}
	if points := requestDurationPoints(t, reader); len(points) != 0 {
		t.Errorf("stream request recorded %d duration samples, want 0", len(points))
	}
}

func TestMiddleware_CapturesStatusCode(t *testing.T) {
	mw, _, exp := newTestMiddleware(t)

	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	req := httptest.NewRequest("POST", "/send-sms", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	spans := exp.GetSpans()
	if len(spans) == 0 {
		t.Fatal("no spans recorded")
	}
	found := false
	for _, a := range spans[0].Attributes {
		if string(a.Key) == "http.response.status_code" && a.Value.AsInt64() == 502 {
			found = true
		}
	}
	if !found {
		t.Error("span missing http.response.status_code=502 attribute")
	}
}

func TestMiddleware_PropagatesIncomingTraceContext(t *testing.T) {
	mw, _, _ := newTestMiddleware(t)

	const wantTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	var capturedCID string
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedCID = CorrelationID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/incoming-call", nil)
	req.Header.Set("traceparent", "00-"+wantTraceID+"-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if capturedCID != wantTraceID {
		t.Errorf("correlation ID = %q, want incoming trace ID %q", capturedCID, wantTraceID)
	}
	if got := rec.Header().Get("X-Correlation-ID"); got != wantTraceID {
		t.Errorf("X-Correlation-ID = %q, want %q", got, wantTraceID)
	}
}

func TestStatusRecorder_UnwrapReachesUnderlyingWriter(t *testing.T) {
	// The websocket upgrade on the stream path hijacks through
	// http.ResponseController, which needs Unwrap on the wrapper.
	rec := httptest.NewRecorder()
	wrapped := &statusRecorder{ResponseWriter: rec, statusCode: http.StatusOK}
	if got := wrapped.Unwrap(); got != http.ResponseWriter(rec) {
		t.Errorf("Unwrap() = %v, want the wrapped recorder", got)
	}
}
