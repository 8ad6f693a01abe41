package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/leighmcculloch/stellar-events-api/internal/api"
	"github.com/leighmcculloch/stellar-events-api/internal/archive"
	"github.com/leighmcculloch/stellar-events-api/internal/config"
	"github.com/leighmcculloch/stellar-events-api/internal/ingest"
	"github.com/leighmcculloch/stellar-events-api/internal/ledger"
	"github.com/leighmcculloch/stellar-events-api/internal/store"
)

func main() {
	fmt.Println("🌟 Starting Stellar Events API...")

	// 1. Load configuration
	_ = godotenv.Load()
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}

	// 2. Configure logger
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	slog.Info("Configuration loaded",
		"meta_url", cfg.MetaURL,
		"parallel_fetches", cfg.ParallelFetches,
		"cache_ttl_days", cfg.CacheTTLDays,
		"log_level", cfg.LogLevel,
	)

	// 3. Load the store layout, falling back to the pubnet defaults when
	// the archive does not publish one.
	cfgCtx, cancelCfg := context.WithTimeout(context.Background(), 30*time.Second)
	storeConfig, err := archive.FetchStoreConfig(cfgCtx, &http.Client{Timeout: archive.DefaultFetchTimeout}, cfg.MetaURL)
	cancelCfg()
	if err != nil {
		slog.Warn("failed to fetch store config, using defaults", "error", err)
		storeConfig = archive.DefaultStoreConfig()
	}

	// 4. Build the core components
	client := archive.NewClient(cfg.MetaURL, storeConfig)

	decoder, err := ledger.NewDecoder()
	if err != nil {
		log.Fatalf("❌ Failed to create decoder: %v", err)
	}
	defer decoder.Close()

	extractor := ledger.NewExtractor(storeConfig.NetworkPassphrase)
	eventStore := store.New()
	slog.Info("initialised in-memory event store")

	ingestConfig := ingest.DefaultConfig()
	ingestConfig.StartLedger = uint32(cfg.StartLedger)
	ingestConfig.ParallelFetches = cfg.ParallelFetches
	ingestConfig.CacheTTL = time.Duration(cfg.CacheTTLDays) * 24 * time.Hour
	ingestConfig.HorizonURL = cfg.HorizonURL

	controller := ingest.New(ingestConfig, client, decoder, extractor, eventStore)

	// 5. Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// 6. Start background sync and the HTTP server
	go controller.Run(ctx)

	server := api.NewServer(cfg.Bind, cfg.Port, eventStore, controller, storeConfig)
	server.Start()

	// 7. Wait for interrupt
	<-sigChan
	slog.Warn("Interrupt received, shutting down...")
	cancel()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Error shutting down server", "error", err)
	}

	slog.Info("Stellar Events API stopped")
}
