package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"events-crawler/adapters"
	"events-crawler/config"
	"events-crawler/metrics"
	"events-crawler/services"
	"events-crawler/storage"
	"events-crawler/utils"
)

func main() {
	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== Events Crawler starting ===")
	logger.Info("Config — sources: %s | concurrency: %d | rate: %dms | fetch timeout: %dms",
		cfg.SourcesPath, cfg.MaxConcurrency, cfg.RateLimitMs, cfg.FetchTimeoutMs)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sources, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logger.Error("Failed to load source registry: %v", err)
		os.Exit(1)
	}

	csvWriter, err := storage.NewCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	store, err := storage.NewPostgresStore(cfg.DSN())
	if err != nil {
		logger.Error("Failed to connect to PostgreSQL: %v", err)
		logger.Error("Make sure Docker is running: docker compose up -d")
		os.Exit(1)
	}
	defer store.Close()

	var crawlMetrics *metrics.CrawlMetrics
	if cfg.MetricsAddr != "" {
		crawlMetrics = metrics.New()
		srv := crawlMetrics.Serve(cfg.MetricsAddr)
		defer srv.Close()
		logger.Info("Metrics exposed on %s/metrics", cfg.MetricsAddr)
	}

	normalizer := services.NewHeuristicNormalizer(logger)
	workflow := services.NewCrawlerWorkflow(store, logger)
	crawler := services.NewCrawler(normalizer, workflow, csvWriter, crawlMetrics, logger,
		time.Duration(cfg.FetchTimeoutMs)*time.Millisecond)

	for _, sc := range sources.Sources {
		adapter, err := adapters.NewFromConfig(sc, cfg, logger)
		if err != nil {
			logger.Error("Skipping source entry: %v", err)
			continue
		}
		crawler.RegisterAdapter(adapter)
		logger.Info("Registered source %q (%s)", adapter.SourceName(), adapter.BaseURL())
	}

	admitted := crawler.Run(ctx)

	if len(admitted) == 0 {
		logger.Warn("No new events admitted this run.")
	} else if err := store.InsertDrafts(ctx, admitted); err != nil {
		logger.Error("Failed to store draft events: %v", err)
	} else {
		logger.Info("Stored %d draft events for moderation (table: events)", len(admitted))
	}

	reportSvc := services.NewReportService(logger)
	reportSvc.Print(reportSvc.Generate(admitted))

	if counts, err := store.CountByStatus(ctx); err == nil {
		logger.Info("Catalog totals — draft: %d | verified: %d | published: %d | rejected: %d",
			counts["draft"], counts["verified"], counts["published"], counts["rejected"])
	}

	fmt.Printf("  Done. Raw CSV → %s | Drafts → PostgreSQL (events table)\n\n",
		cfg.CSVOutputPath)
}
