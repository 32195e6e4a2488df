package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/livepoll/livepoll-backend/internal/config"
	"github.com/livepoll/livepoll-backend/internal/database"
	"github.com/livepoll/livepoll-backend/internal/domain"
	"github.com/livepoll/livepoll-backend/internal/migration"
	pkglogger "github.com/livepoll/livepoll-backend/pkg/logger"
)

func main() {
	// CLI flags
	configPath := flag.String("config", config.Path(), "config file path")
	upgrade := flag.Bool("upgrade", true, "upgrade stored polls to the current document schema")
	dryRun := flag.Bool("dry-run", false, "report outdated polls without writing")
	batchSize := flag.Int("batch-size", 100, "polls per progress report")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv()
	pkglogger.InitStructured(os.Getenv("APP_ENV"))

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector := database.NewConnector(cfg.Database, *verbose)
	db, err := connector.Connect(ctx)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer connector.Close() //nolint:errcheck

	start := time.Now()
	if err := migration.Run(db); err != nil {
		log.Fatalf("Schema migration failed: %v", err)
	}
	log.Printf("[migrate] schema ready in %v", time.Since(start))

	if *dryRun {
		var outdated int64
		err := db.WithContext(ctx).Model(&domain.Poll{}).
			Where("schema_version IS NULL OR schema_version <> ?", domain.CurrentSchemaVersion.String()).
			Count(&outdated).Error
		if err != nil {
			log.Fatalf("Failed to count outdated polls: %v", err)
		}
		log.Printf("[dry-run] %d polls would be upgraded to schema %s", outdated, domain.CurrentSchemaVersion)
		return
	}

	if !*upgrade {
		return
	}
	n, err := migration.UpgradeAll(ctx, db, *batchSize)
	if err != nil {
		log.Printf("[migrate] FAILED after %d polls: %v", n, err)
		os.Exit(1)
	}
	log.Printf("[migrate] upgraded %d polls in %v", n, time.Since(start))
}
