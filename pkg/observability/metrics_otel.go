package observability

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics exports request and connection pool telemetry over OTLP.
// Domain counters stay on the Prometheus registry; this covers the signals
// the collector wants alongside traces.
type OTelMetrics struct {
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram
	httpRequestSize     metric.Int64Histogram
	httpResponseSize    metric.Int64Histogram

	dbConnectionsActive metric.Int64Gauge
	dbConnectionsIdle   metric.Int64Gauge
	dbConnectionsMax    metric.Int64Gauge
}

// NewOTelMetrics builds the instruments against the global meter provider,
// so InitOTel must run first.
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter("github.com/folioworks/folio")

	m := &OTelMetrics{}
	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http.server.requests",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http.server.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration histogram: %w", err)
	}

	m.httpRequestSize, err = meter.Int64Histogram(
		"http.server.request.size",
		metric.WithDescription("HTTP request size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_size histogram: %w", err)
	}

	m.httpResponseSize, err = meter.Int64Histogram(
		"http.server.response.size",
		metric.WithDescription("HTTP response size in bytes"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_response_size histogram: %w", err)
	}

	m.dbConnectionsActive, err = meter.Int64Gauge(
		"db.connections.active",
		metric.WithDescription("Number of active database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_connections_active gauge: %w", err)
	}

	m.dbConnectionsIdle, err = meter.Int64Gauge(
		"db.connections.idle",
		metric.WithDescription("Number of idle database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_connections_idle gauge: %w", err)
	}

	m.dbConnectionsMax, err = meter.Int64Gauge(
		"db.connections.max",
		metric.WithDescription("Maximum number of database connections"),
		metric.WithUnit("{connection}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create db_connections_max gauge: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records one served request.
func (m *OTelMetrics) RecordHTTPRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration, requestSize, responseSize int64) {
	attrs := []attribute.KeyValue{
		attribute.String("http.method", method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", statusCode),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if requestSize > 0 {
		m.httpRequestSize.Record(ctx, requestSize, metric.WithAttributes(attrs...))
	}
	if responseSize > 0 {
		m.httpResponseSize.Record(ctx, responseSize, metric.WithAttributes(attrs...))
	}
}

// UpdateDBConnectionStats records a snapshot of the connection pool.
func (m *OTelMetrics) UpdateDBConnectionStats(ctx context.Context, active, idle, max int) {
	m.dbConnectionsActive.Record(ctx, int64(active))
	m.dbConnectionsIdle.Record(ctx, int64(idle))
	m.dbConnectionsMax.Record(ctx, int64(max))
}

// StartDBStatsPoller snapshots db pool stats on the given interval until
// ctx is cancelled.
func (m *OTelMetrics) StartDBStatsPoller(ctx context.Context, db *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats := db.Stats()
				m.UpdateDBConnectionStats(ctx, stats.InUse, stats.Idle, stats.MaxOpenConnections)
			}
		}
	}()
}

// HTTPMetricsHandler wraps next and records every request to m.
func HTTPMetricsHandler(m *OTelMetrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(rw, r)

		var requestSize int64
		if r.ContentLength > 0 {
			requestSize = r.ContentLength
		}
		m.RecordHTTPRequest(r.Context(), r.Method, r.URL.Path, rw.statusCode, time.Since(start), requestSize, int64(rw.bytesWritten))
	})
}
