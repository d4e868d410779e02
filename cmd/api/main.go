package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvoronin/ledgerline/internal/api/handlers"
	"github.com/dvoronin/ledgerline/internal/api/middleware"
	"github.com/dvoronin/ledgerline/internal/archive"
	"github.com/dvoronin/ledgerline/internal/config"
	"github.com/dvoronin/ledgerline/internal/gateway"
	"github.com/dvoronin/ledgerline/internal/ingest"
	"github.com/dvoronin/ledgerline/internal/logger"
	"github.com/dvoronin/ledgerline/internal/store"
	storeBQ "github.com/dvoronin/ledgerline/internal/store/bigquery"
	"github.com/dvoronin/ledgerline/internal/store/memory"
)

func main() {
	envFile := flag.String("env", "", "Optional .env file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fallback := logger.New("")
		fallback.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.LogLevel)
	ctx := context.Background()

	// Store: BigQuery when a project is configured, in-memory otherwise.
	var txStore store.TransactionStore
	if cfg.BigQueryProject != "" {
		bq, err := storeBQ.New(ctx, storeBQ.Config{
			ProjectID: cfg.BigQueryProject,
			DatasetID: cfg.BigQueryDataset,
			TableID:   cfg.BigQueryTable,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create BigQuery store")
		}
		defer bq.Close()
		txStore = bq
		log.Info().Str("project", cfg.BigQueryProject).Str("dataset", cfg.BigQueryDataset).Msg("Using BigQuery store")
	} else {
		txStore = memory.New()
		log.Warn().Msg("No BigQuery project configured - transactions are kept in memory only")
	}

	gw, err := gateway.NewGemini(ctx, gateway.GeminiConfig{
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Gemini gateway")
	}

	var archiver ingest.Archiver
	if cfg.ArchiveBucket != "" {
		gcs, err := archive.NewGCS(cfg.ArchiveBucket)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create GCS archiver")
		}
		archiver = gcs
		log.Info().Str("bucket", cfg.ArchiveBucket).Msg("Receipt archiving enabled")
	} else {
		log.Warn().Msg("No archive bucket configured - receipt archiving is disabled")
	}

	svc := ingest.NewService(gw, txStore, archiver, log)

	mux := http.NewServeMux()
	handlers.NewTransactionsHandler(svc, log).Register(mux)

	handler := middleware.Recovery(log)(
		middleware.Logger(log)(
			middleware.RequestID(
				middleware.CORS(mux),
			),
		),
	)

	server := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
