package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"time"

	redis "github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/folioworks/folio/pkg/api"
	"github.com/folioworks/folio/pkg/awards"
	"github.com/folioworks/folio/pkg/cache"
	"github.com/folioworks/folio/pkg/config"
	"github.com/folioworks/folio/pkg/consistency"
	"github.com/folioworks/folio/pkg/criteria"
	"github.com/folioworks/folio/pkg/grants"
	"github.com/folioworks/folio/pkg/middleware"
	"github.com/folioworks/folio/pkg/moderation"
	"github.com/folioworks/folio/pkg/notify"
	"github.com/folioworks/folio/pkg/observability"
	"github.com/folioworks/folio/pkg/store"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)
	logger.Info("Starting folio server")

	ctx := context.Background()

	// Database
	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.WithError(err).Error("Failed to open database")
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnLifetime)

	if err := db.PingContext(ctx); err != nil {
		logger.WithError(err).Error("Failed to ping database")
		os.Exit(1)
	}

	if err := store.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Failed to run migrations")
		os.Exit(1)
	}
	if err := grants.RunMigrations(ctx, db); err != nil {
		logger.WithError(err).Error("Failed to run grant migrations")
		os.Exit(1)
	}
	logger.Info("Database ready")

	// Redis (optional second cache tier)
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, continuing without it")
			redisClient = nil
		} else {
			logger.Infof("Redis connected at %s", cfg.Redis.Addr)
		}
	}

	// Metrics
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	// Tracing
	otelProviders, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: cfg.Observability.OTelServiceVersion,
		Insecure:       cfg.Observability.OTelInsecure,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize OpenTelemetry")
		os.Exit(1)
	}

	// Engine wiring
	st := store.New(db)
	grantStore := grants.NewStore(db)
	engine := consistency.NewEngine(db, metrics)
	notifier := notify.NewRecorder(db, metrics)
	machine := moderation.NewMachine(db, engine, notifier, metrics, logger)
	registryDefs := criteria.NewRegistry()
	evaluator := criteria.NewEvaluator(db, registryDefs, metrics)
	awardService := awards.NewService(db, registryDefs, evaluator, notifier, metrics, logger)

	var tiered *cache.TwoTier
	if cfg.Cache.Enabled {
		cacheCfg := cache.DefaultConfig()
		if cfg.Cache.MaxEntries > 0 {
			cacheCfg.MaxEntries = cfg.Cache.MaxEntries
		}
		tiered = cache.New(cacheCfg, redisClient, metrics)
	}

	var limiter *middleware.WriteLimiter
	if cfg.RateLimit.Enabled {
		limiter = middleware.NewWriteLimiter(
			middleware.Config{
				Limit:  cfg.RateLimit.IdentifiedLimit,
				Window: cfg.RateLimit.Window,
				Burst:  cfg.RateLimit.IdentifiedBurst,
			},
			middleware.Config{
				Limit:  cfg.RateLimit.AnonymousLimit,
				Window: cfg.RateLimit.Window,
				Burst:  cfg.RateLimit.AnonymousBurst,
			},
		)
		limiter.StartCleanup(ctx)
	}

	apiLogger := logrus.New()
	apiLogger.SetFormatter(&logrus.JSONFormatter{})
	if lvl, err := logrus.ParseLevel(cfg.Observability.LogLevel.String()); err == nil {
		apiLogger.SetLevel(lvl)
	}

	server := api.NewServer(api.Deps{
		DB:         db,
		Store:      st,
		Grants:     grantStore,
		Engine:     engine,
		Moderation: machine,
		Awards:     awardService,
		Registry:   registryDefs,
		Notifier:   notifier,
		Cache:      tiered,
		Metrics:    metrics,
		Logger:     apiLogger,

		RateLimiter: limiter,
	})

	var handler http.Handler = server
	if otelProviders != nil {
		otelMetrics, err := observability.NewOTelMetrics()
		if err != nil {
			logger.WithError(err).Error("Failed to set up OTLP metrics")
			os.Exit(1)
		}
		otelMetrics.StartDBStatsPoller(ctx, db, 15*time.Second)
		handler = observability.HTTPMetricsHandler(otelMetrics, handler)
		handler = otelhttp.NewHandler(handler, "folio-api")
	}

	// Health and metrics endpoints on a separate port
	healthMux := http.NewServeMux()
	observability.RegisterHealthRoutes(healthMux, observability.NewHealthChecker(db, redisClient))
	if cfg.Observability.MetricsEnabled {
		observability.RegisterMetricsEndpoint(healthMux, registry)
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}
	go func() {
		logger.Infof("Health endpoints listening on :%s", cfg.Server.HealthPort)
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("Health server failed")
		}
	}()

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	if redisClient != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return redisClient.Close()
		})
	}
	if otelProviders != nil {
		shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
			return observability.ShutdownOTel(ctx, otelProviders, logger)
		})
	}

	go func() {
		logger.Infof("API listening on %s:%s", cfg.Server.Host, cfg.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("HTTP server failed")
			os.Exit(1)
		}
	}()

	if err := shutdown.WaitForShutdown(); err != nil {
		logger.WithError(err).Error("Shutdown finished with errors")
		os.Exit(1)
	}
	logger.Info("Server stopped")
}
