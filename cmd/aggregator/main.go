package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/romangod6/sitemap-aggregator/config"
	"github.com/romangod6/sitemap-aggregator/internal/api"
	"github.com/romangod6/sitemap-aggregator/internal/crawler"
	"github.com/romangod6/sitemap-aggregator/internal/sitemap"
	"github.com/romangod6/sitemap-aggregator/internal/storage"
	"github.com/romangod6/sitemap-aggregator/internal/utils"
	"github.com/spf13/afero"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := utils.NewRunLogger(cfg.Logging.Dir, "aggregator")
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	// Run history is optional
	var store storage.Store
	if cfg.Database.URL != "" {
		s, err := storage.Open(cfg.Database.URL)
		if err != nil {
			log.Fatalf("Failed to initialize storage: %v", err)
		}
		defer s.Close()

		if err := s.Initialize(); err != nil {
			log.Fatalf("Failed to initialize database tables: %v", err)
		}
		store = s
	}

	fs := afero.NewOsFs()
	c := crawler.NewCrawler(store, sitemap.NewWriter(fs, cfg.Output.Path), &crawler.CrawlerConfig{
		SourceURL:    cfg.Source.URL,
		Format:       crawler.Format(cfg.Source.Format),
		UserAgent:    cfg.Crawler.UserAgent,
		FetchTimeout: cfg.GetFetchTimeout(),
		ProbeTimeout: cfg.GetProbeTimeout(),
		Workers:      cfg.Probe.Workers,
		Policy:       crawler.ProbePolicy(cfg.Probe.Policy),
	}, logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if !cfg.Server.Enabled {
		if _, err := c.Run(ctx); err != nil {
			// deferred closes do not run after Fatalf
			logger.Close()
			log.Fatalf("Failed to generate sitemap index: %v", err)
		}
		return
	}

	runner := crawler.NewRunner(c)
	server := api.NewServer(cfg.Server.Port, store, runner, fs, cfg.Output.Path)

	// Setup periodic generation
	go func() {
		generate(ctx, runner, logger)

		ticker := time.NewTicker(cfg.GetGenerateInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				logger.LogInfo("Starting periodic generation...")
				generate(ctx, runner, logger)
			case <-ctx.Done():
				return
			}
		}
	}()

	// Start the API server
	go func() {
		logger.LogInfo("Starting API server on port %d", cfg.Server.Port)
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start API server: %v", err)
		}
	}()

	// Wait for shutdown
	waitForShutdown(ctx, server, logger)
}

// generate runs once; failures are logged by the crawler itself.
func generate(ctx context.Context, runner *crawler.Runner, logger *utils.RunLogger) {
	if _, err := runner.RunNow(ctx); errors.Is(err, crawler.ErrRunInProgress) {
		logger.LogInfo("Skipping scheduled generation: %v", err)
	}
}

func waitForShutdown(ctx context.Context, server *api.Server, logger *utils.RunLogger) {
	<-ctx.Done()
	logger.LogInfo("Shutting down...")

	// Graceful server shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.LogError("Error shutting down server: %v", err)
	}
	logger.LogInfo("Server shut down gracefully")
}
