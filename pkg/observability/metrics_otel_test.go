package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeterProvider(t *testing.T) *metric.ManualReader {
	t.Helper()
	reader := metric.NewManualReader()
	provider := metric.NewMeterProvider(metric.WithReader(reader))
	otel.SetMeterProvider(provider)
	t.Cleanup(func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			t.Logf("error shutting down provider: %v", err)
		}
	})
	return reader
}

func collectMetrics(t *testing.T, reader *metric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("failed to collect metrics: %v", err)
	}
	out := make(map[string]metricdata.Metrics)
	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func TestNewOTelMetrics(t *testing.T) {
	setupTestMeterProvider(t)

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v, want nil", err)
	}
	if m == nil {
		t.Fatal("NewOTelMetrics() returned nil metrics")
	}

	if m.httpRequestsTotal == nil {
		t.Error("httpRequestsTotal is nil")
	}
	if m.httpRequestDuration == nil {
		t.Error("httpRequestDuration is nil")
	}
	if m.httpRequestSize == nil {
		t.Error("httpRequestSize is nil")
	}
	if m.httpResponseSize == nil {
		t.Error("httpResponseSize is nil")
	}
	if m.dbConnectionsActive == nil {
		t.Error("dbConnectionsActive is nil")
	}
	if m.dbConnectionsIdle == nil {
		t.Error("dbConnectionsIdle is nil")
	}
	if m.dbConnectionsMax == nil {
		t.Error("dbConnectionsMax is nil")
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	reader := setupTestMeterProvider(t)

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	m.RecordHTTPRequest(context.Background(), http.MethodPost, "/votes", 201, 20*time.Millisecond, 64, 128)
	m.RecordHTTPRequest(context.Background(), http.MethodGet, "/documents/1", 200, 5*time.Millisecond, 0, 512)

	metrics := collectMetrics(t, reader)

	requests, ok := metrics["http.server.requests"]
	if !ok {
		t.Fatal("http.server.requests was not exported")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("http.server.requests has unexpected data type %T", requests.Data)
	}
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	if total != 2 {
		t.Errorf("http.server.requests total = %d, want 2", total)
	}

	// Request size is skipped for bodyless requests, so only one sample lands.
	sizes, ok := metrics["http.server.request.size"]
	if !ok {
		t.Fatal("http.server.request.size was not exported")
	}
	hist, ok := sizes.Data.(metricdata.Histogram[int64])
	if !ok {
		t.Fatalf("http.server.request.size has unexpected data type %T", sizes.Data)
	}
	var samples uint64
	for _, dp := range hist.DataPoints {
		samples += dp.Count
	}
	if samples != 1 {
		t.Errorf("http.server.request.size samples = %d, want 1", samples)
	}
}

func TestUpdateDBConnectionStats(t *testing.T) {
	reader := setupTestMeterProvider(t)

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	m.UpdateDBConnectionStats(context.Background(), 4, 6, 25)

	metrics := collectMetrics(t, reader)
	want := map[string]int64{
		"db.connections.active": 4,
		"db.connections.idle":   6,
		"db.connections.max":    25,
	}
	for name, value := range want {
		exported, ok := metrics[name]
		if !ok {
			t.Errorf("%s was not exported", name)
			continue
		}
		gauge, ok := exported.Data.(metricdata.Gauge[int64])
		if !ok {
			t.Errorf("%s has unexpected data type %T", name, exported.Data)
			continue
		}
		if len(gauge.DataPoints) != 1 {
			t.Errorf("%s has %d data points, want 1", name, len(gauge.DataPoints))
			continue
		}
		if got := gauge.DataPoints[0].Value; got != value {
			t.Errorf("%s = %d, want %d", name, got, value)
		}
	}
}

func TestHTTPMetricsHandler(t *testing.T) {
	reader := setupTestMeterProvider(t)

	m, err := NewOTelMetrics()
	if err != nil {
		t.Fatalf("NewOTelMetrics() error = %v", err)
	}

	handler := HTTPMetricsHandler(m, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"not found"}`))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/documents/99999", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	metrics := collectMetrics(t, reader)
	requests, ok := metrics["http.server.requests"]
	if !ok {
		t.Fatal("http.server.requests was not exported")
	}
	sum, ok := requests.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("http.server.requests has unexpected data type %T", requests.Data)
	}
	if len(sum.DataPoints) != 1 {
		t.Fatalf("http.server.requests has %d data points, want 1", len(sum.DataPoints))
	}
	if sum.DataPoints[0].Value != 1 {
		t.Errorf("http.server.requests = %d, want 1", sum.DataPoints[0].Value)
	}
}
