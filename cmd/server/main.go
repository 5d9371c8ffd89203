package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shelfpix/backend/config"
	httpDelivery "github.com/shelfpix/backend/internal/delivery/http"
	"github.com/shelfpix/backend/internal/infrastructure/cache"
	"github.com/shelfpix/backend/internal/infrastructure/download"
	"github.com/shelfpix/backend/internal/infrastructure/imaging"
	"github.com/shelfpix/backend/internal/infrastructure/postgres"
	"github.com/shelfpix/backend/internal/infrastructure/serp"
	"github.com/shelfpix/backend/internal/infrastructure/storage"
	"github.com/shelfpix/backend/internal/infrastructure/trust"
	"github.com/shelfpix/backend/internal/infrastructure/vision"
	"github.com/shelfpix/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting ShelfPix Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	ctx := context.Background()

	// Database
	pool, err := pgxpool.New(ctx, cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to prepare database schema: %v", err)
	}
	repo := postgres.NewItemRepository(pool)

	// External clients
	searchClient := serp.NewClient(cfg.Search.APIKey, cfg.Search.BaseURL, cfg.Search.Country, cfg.Search.MaxResults)
	visionClient := vision.NewClient(cfg.Vision.BaseURL, cfg.Vision.Timeout)
	downloader := download.NewDownloader(30 * time.Second)

	// Enable debug mode in development environment
	debug := cfg.Server.Environment == "development" || cfg.Matching.EnableDebugLogging
	if debug {
		searchClient.SetDebug(true)
		downloader.SetDebug(true)
		log.Printf("Debug logging enabled")
	}

	log.Printf("Search API: %s (country=%s, max_results=%d)", cfg.Search.BaseURL, cfg.Search.Country, cfg.Search.MaxResults)
	log.Printf("Vision service: %s (timeout=%s)", cfg.Vision.BaseURL, cfg.Vision.Timeout)
	log.Printf("Cache TTL: %s", cfg.Cache.TTL)

	// Shared state
	searchCache := cache.NewSearchCache(cfg.Cache.TTL)
	trustTable := trust.New(cfg.Trust.Step, trust.DefaultSeeds())
	store := storage.NewStore(cfg.Output.BaseDir)
	optimizer := imaging.NewOptimizer(cfg.Image.MaxDimension, cfg.Image.MaxSizeKB)

	// Usecase layer
	evaluator := usecase.NewEvaluator(trustTable, visionClient, downloader, usecase.EvaluatorConfig{
		StrictVariant:        cfg.Matching.StrictVariant,
		SizeTolerancePercent: cfg.Matching.SizeTolerancePercent,
	})
	validator := usecase.NewValidator(visionClient, usecase.ValidatorConfig{
		AutoApproveThreshold: cfg.Thresholds.AutoApprove,
		AutoRejectThreshold:  cfg.Thresholds.AutoReject,
		RequireBrandOCR:      cfg.Matching.RequireBrandOCR,
	})
	enrichment := usecase.NewEnrichmentService(
		repo,
		searchClient,
		searchCache,
		evaluator,
		validator,
		trustTable,
		downloader,
		optimizer,
		store,
	)
	if debug {
		evaluator.SetDebug(true)
		enrichment.SetDebug(true)
	}

	orchestrator := usecase.NewOrchestrator(repo, enrichment, cfg.Batch.ConcurrencyLimit)
	reviewService := usecase.NewReviewService(repo, store, trustTable)

	log.Printf("Thresholds: approve=%.2f reject=%.2f, strict_variant=%v, workers=%d",
		cfg.Thresholds.AutoApprove,
		cfg.Thresholds.AutoReject,
		cfg.Matching.StrictVariant,
		cfg.Batch.ConcurrencyLimit)

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(orchestrator, reviewService, repo, trustTable)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
