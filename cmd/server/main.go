package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/duizhang/settlement/internal/api"
	"github.com/duizhang/settlement/internal/config"
	"github.com/duizhang/settlement/internal/export"
	"github.com/duizhang/settlement/internal/ingestion"
	"github.com/duizhang/settlement/internal/metrics"
	"github.com/duizhang/settlement/internal/reconciliation"
	"github.com/duizhang/settlement/internal/repository"
)

func main() {
	// Load .env file for local development (ignore errors in production)
	_ = godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	billDefaults, err := config.LoadBillConfig(cfg.BillConfigPath)
	if err != nil {
		logger.Error("Failed to load bill config", "error", err, "path", cfg.BillConfigPath)
		os.Exit(1)
	}

	logger.Info("Initializing database", "path", cfg.DBPath)
	db, err := repository.InitDB(cfg.DBPath)
	if err != nil {
		logger.Error("Failed to init DB", "error", err)
		os.Exit(1)
	}
	store := repository.NewStore(db)
	defer store.Close()

	metrics.Init(db, logger)

	reconSvc := reconciliation.NewService(store.Settlements, store.Findings, logger)
	ingestionSvc := ingestion.NewService(store.Settlements, store.Transactions, store.Imports, reconSvc, logger)
	renderer, err := export.NewRenderer(cfg.ExportCacheSize, cfg.PDFFontPath, logger)
	if err != nil {
		logger.Error("Failed to create bill renderer", "error", err)
		os.Exit(1)
	}

	seed(logger, store, ingestionSvc, cfg.SeedDir)

	router := api.NewRouter(api.Deps{
		Store:        store,
		Recon:        reconSvc,
		Ingestion:    ingestionSvc,
		Renderer:     renderer,
		BillDefaults: billDefaults,
		Logger:       logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Listening", "addr", "http://localhost:"+cfg.Port, "api", "/api/v1", "metrics", "/metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("Shutdown signal received", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
	}
}

// seed loads settlements.json and transactions.json from dir into empty
// tables. Missing files are skipped.
func seed(logger *slog.Logger, store *repository.Store, svc *ingestion.Service, dir string) {
	if dir == "" {
		return
	}

	if n, err := store.Settlements.Count(); err != nil {
		logger.Warn("Failed to count settlement records", "error", err)
	} else if n == 0 {
		if data, err := os.ReadFile(filepath.Join(dir, "settlements.json")); err == nil {
			res, err := svc.IngestSettlements(data, ingestion.FormatJSON)
			if err != nil {
				logger.Warn("Failed to seed settlement records", "error", err)
			} else {
				logger.Info("Seeded settlement records", "count", res.RecordsIngested, "dir", dir)
			}
		}
	} else {
		logger.Info("Database already has settlement records, skipping seed", "count", n)
	}

	if n, err := store.Transactions.Count(); err != nil {
		logger.Warn("Failed to count transactions", "error", err)
	} else if n == 0 {
		if data, err := os.ReadFile(filepath.Join(dir, "transactions.json")); err == nil {
			res, err := svc.IngestTransactions(data, ingestion.FormatJSON)
			if err != nil {
				logger.Warn("Failed to seed transactions", "error", err)
			} else {
				logger.Info("Seeded transactions", "count", res.RecordsIngested, "dir", dir)
			}
		}
	}
}
