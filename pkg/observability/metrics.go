package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Aggregate recomputation metrics
	RecomputeTotal    *prometheus.CounterVec
	RecomputeDuration *prometheus.HistogramVec

	// Vote and moderation metrics
	VotesTotal             *prometheus.CounterVec
	ModerationActionsTotal *prometheus.CounterVec

	// Badge metrics
	CriteriaEvaluationsTotal *prometheus.CounterVec
	AwardsGrantedTotal       *prometheus.CounterVec
	SweepDuration            prometheus.Histogram

	// Cache metrics
	CacheHitsTotal      *prometheus.CounterVec
	CacheMissesTotal    *prometheus.CounterVec
	CacheEvictionsTotal *prometheus.CounterVec

	// Database metrics
	DBConnectionsActive       prometheus.Gauge
	DBConnectionsIdle         prometheus.Gauge
	DBConnectionsWaitCount    prometheus.Gauge
	DBConnectionsWaitDuration prometheus.Gauge

	// Redis metrics
	RedisConnectionsActive prometheus.Gauge
	RedisCommandsTotal     *prometheus.CounterVec
	RedisCommandDuration   *prometheus.HistogramVec

	// Business metrics
	ProfilesTotal      prometheus.Gauge
	CorporaTotal       prometheus.Gauge
	DocumentsTotal     prometheus.Gauge
	NotificationsTotal *prometheus.CounterVec
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		// HTTP metrics
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPRequestSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_http_request_size_bytes",
				Help:    "HTTP request size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: prometheus.ExponentialBuckets(100, 10, 8),
			},
			[]string{"method", "path"},
		),

		// Aggregate recomputation metrics
		RecomputeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_recompute_total",
				Help: "Total number of aggregate recomputations",
			},
			[]string{"aggregate"},
		),
		RecomputeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_recompute_duration_seconds",
				Help:    "Aggregate recomputation duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"aggregate"},
		),

		// Vote and moderation metrics
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_votes_total",
				Help: "Total number of votes cast or removed",
			},
			[]string{"target_type", "operation"},
		),
		ModerationActionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_moderation_actions_total",
				Help: "Total number of moderation actions applied",
			},
			[]string{"action", "target_type"},
		),

		// Badge metrics
		CriteriaEvaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_criteria_evaluations_total",
				Help: "Total number of badge criteria evaluations",
			},
			[]string{"criteria_type", "result"},
		),
		AwardsGrantedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_awards_granted_total",
				Help: "Total number of badge awards granted",
			},
			[]string{"criteria_type"},
		),
		SweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "folio_award_sweep_duration_seconds",
				Help:    "Badge award sweep duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),

		// Cache metrics
		CacheHitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"cache_type", "key_type"},
		),
		CacheMissesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"cache_type", "key_type"},
		),
		CacheEvictionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_cache_evictions_total",
				Help: "Total number of cache evictions",
			},
			[]string{"cache_type", "reason"},
		),

		// Database metrics
		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_db_connections_active",
				Help: "Number of active database connections",
			},
		),
		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_db_connections_idle",
				Help: "Number of idle database connections",
			},
		),
		DBConnectionsWaitCount: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_db_connections_wait_count",
				Help: "Total number of connections waited for",
			},
		),
		DBConnectionsWaitDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_db_connections_wait_duration_seconds",
				Help: "Total time spent waiting for connections",
			},
		),

		// Redis metrics
		RedisConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_redis_connections_active",
				Help: "Number of active Redis connections",
			},
		),
		RedisCommandsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_redis_commands_total",
				Help: "Total number of Redis commands",
			},
			[]string{"command", "status"},
		),
		RedisCommandDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "folio_redis_command_duration_seconds",
				Help:    "Redis command duration in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"command"},
		),

		// Business metrics
		ProfilesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_profiles_total",
				Help: "Total number of profiles",
			},
		),
		CorporaTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_corpora_total",
				Help: "Total number of corpora",
			},
		),
		DocumentsTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "folio_documents_total",
				Help: "Total number of documents",
			},
		),
		NotificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "folio_notifications_total",
				Help: "Total number of notifications recorded",
			},
			[]string{"kind"},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestSize,
		m.HTTPResponseSize,
		m.RecomputeTotal,
		m.RecomputeDuration,
		m.VotesTotal,
		m.ModerationActionsTotal,
		m.CriteriaEvaluationsTotal,
		m.AwardsGrantedTotal,
		m.SweepDuration,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.CacheEvictionsTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
		m.DBConnectionsWaitCount,
		m.DBConnectionsWaitDuration,
		m.RedisConnectionsActive,
		m.RedisCommandsTotal,
		m.RedisCommandDuration,
		m.ProfilesTotal,
		m.CorporaTotal,
		m.DocumentsTotal,
		m.NotificationsTotal,
	)

	return m
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// HTTPMetricsMiddleware instruments HTTP requests with Prometheus metrics
func HTTPMetricsMiddleware(metrics *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Wrap response writer to capture status and size
			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
			}

			// Record request size
			if r.ContentLength > 0 {
				metrics.HTTPRequestSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(r.ContentLength))
			}

			// Serve the request
			next.ServeHTTP(rw, r)

			// Record metrics
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(rw.statusCode)

			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, r.URL.Path, status).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, r.URL.Path).Observe(duration)
			metrics.HTTPResponseSize.WithLabelValues(r.Method, r.URL.Path).Observe(float64(rw.bytesWritten))
		})
	}
}

// RegisterMetricsEndpoint registers the /metrics endpoint
func RegisterMetricsEndpoint(mux *http.ServeMux, registry *prometheus.Registry) {
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}
