package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/fsnotify/fsnotify"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/folioworks/folio/pkg/awards"
	"github.com/folioworks/folio/pkg/criteria"
	"github.com/folioworks/folio/pkg/notify"
)

var (
	dbURL           = flag.String("db-url", getEnv("FOLIO_POSTGRES_URL", "postgres://localhost/folio?sslmode=disable"), "PostgreSQL connection URL")
	sweepSchedule   = flag.String("schedule", getEnv("FOLIO_SWEEP_SCHEDULE", "@every 10m"), "Cron schedule for the award sweep")
	definitionsPath = flag.String("definitions", getEnv("FOLIO_BADGE_DEFINITIONS", ""), "Path to the badge definitions YAML file (optional)")
	systemProfileID = flag.Int64("system-profile", getEnvInt64("FOLIO_SYSTEM_PROFILE_ID", 1), "Profile that owns synced badge definitions")
	runOnce         = flag.Bool("run-once", false, "Run the sweep once and exit (for testing)")
)

func main() {
	flag.Parse()

	// Connect to database
	db, err := sql.Open("postgres", *dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	registry := criteria.NewRegistry()
	evaluator := criteria.NewEvaluator(db, registry, nil)
	service := awards.NewService(db, registry, evaluator, notify.NewRecorder(db, nil), nil, nil)

	ctx := context.Background()

	// Sync badge definitions before the first sweep
	if *definitionsPath != "" {
		if err := syncDefinitions(ctx, service, *definitionsPath, *systemProfileID); err != nil {
			log.Fatalf("Failed to sync badge definitions: %v", err)
		}
	}

	// Run once mode (for testing or backfilling)
	if *runOnce {
		granted, err := service.Sweep(ctx)
		if err != nil {
			log.Fatalf("Sweep failed: %v", err)
		}
		log.Printf("Sweep completed, %d awards granted", granted)
		return
	}

	// Reload definitions when the file changes
	var watcher *fsnotify.Watcher
	if *definitionsPath != "" {
		watcher, err = fsnotify.NewWatcher()
		if err != nil {
			log.Fatalf("Failed to create file watcher: %v", err)
		}
		defer watcher.Close()

		if err := watcher.Add(*definitionsPath); err != nil {
			log.Fatalf("Failed to watch definitions file: %v", err)
		}

		go func() {
			for {
				select {
				case event, ok := <-watcher.Events:
					if !ok {
						return
					}
					if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
						log.Printf("Badge definitions changed, reloading from %s", *definitionsPath)
						if err := syncDefinitions(ctx, service, *definitionsPath, *systemProfileID); err != nil {
							log.Printf("Definitions reload failed: %v", err)
						}
					}
				case err, ok := <-watcher.Errors:
					if !ok {
						return
					}
					log.Printf("Watcher error: %v", err)
				}
			}
		}()
	}

	// Scheduled mode
	c := cron.New()
	_, err = c.AddFunc(*sweepSchedule, func() {
		granted, err := service.Sweep(ctx)
		if err != nil {
			log.Printf("Sweep failed: %v", err)
			return
		}
		log.Printf("Sweep completed, %d awards granted", granted)
	})
	if err != nil {
		log.Fatalf("Failed to schedule sweep: %v", err)
	}

	c.Start()
	log.Println("Folio award sweeper started")
	log.Printf("Sweep schedule: %s", *sweepSchedule)

	// Wait for termination signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	log.Println("Shutting down gracefully...")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	log.Println("Sweeper stopped")
}

func syncDefinitions(ctx context.Context, service *awards.Service, path string, systemProfileID int64) error {
	defs, err := service.LoadDefinitions(path)
	if err != nil {
		return err
	}
	if err := service.SyncDefinitions(ctx, systemProfileID, defs); err != nil {
		return err
	}
	log.Printf("Synced %d badge definitions", len(defs))
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}
