// Package observability provides structured logging, Prometheus metrics, and OpenTelemetry tracing.
//
// # Overview
//
// This package centralizes observability infrastructure including JSON logging, metrics
// collection, health checks, and distributed tracing integration.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.Info("Server started")
//
// Context-aware logging:
//
//	logger.WithField("request_id", reqID).Error("Request failed")
//
// # Prometheus Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics(registry)
//	metrics.HTTPRequestsTotal.WithLabelValues("GET", "/documents", "200").Inc()
//	metrics.RecomputeTotal.WithLabelValues("document").Inc()
//
// Business metrics:
//
//	metrics.ProfilesTotal.Set(float64(count))
//	metrics.CorporaTotal.Set(float64(corpora))
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//	fmt.Printf("Status: %v\n", status.Status)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:        true,
//		ServiceName:    "folio-api",
//		ServiceVersion: "v1.0.0",
//		Endpoint:       "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
//
// # Related Packages
//
//   - pkg/config: Observability configuration
//   - pkg/api: Request logging middleware
package observability
