package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"catalog-etl-service/internal/api"
	"catalog-etl-service/internal/bronze"
	"catalog-etl-service/internal/config"
	"catalog-etl-service/internal/fetch"
	"catalog-etl-service/internal/gold"
	"catalog-etl-service/internal/pipeline"
	"catalog-etl-service/internal/quality"
	"catalog-etl-service/internal/silver"
	"catalog-etl-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

const defaultAppName = "CatalogETLService"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting service...")

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s, RunMode: %s", cfg.AppEnv, cfg.RunMode)

	// --- Warehouse Connection ---
	db, err := sql.Open("postgres", cfg.Postgres.DSN())
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize warehouse connection: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Printf("WARN: Error closing warehouse on deferred cleanup: %v", err)
		}
	}()

	if err := db.PingContext(context.Background()); err != nil {
		logger.Fatalf("FATAL: Failed to ping warehouse: %v", err)
	}
	logger.Println("INFO: Warehouse connection established successfully.")

	if cfg.Pipeline.BootstrapSchema {
		if err := store.EnsureSchema(context.Background(), db); err != nil {
			logger.Fatalf("FATAL: Failed to bootstrap warehouse schema: %v", err)
		}
		logger.Println("INFO: Warehouse schema bootstrapped.")
	}

	// --- Pipeline Assembly ---
	warehouse := store.NewWarehouse(db)
	client := fetch.NewClient(cfg.Source.BaseURL, cfg.Source.Timeout)

	runner := pipeline.NewRunner(
		bronze.NewLoader(client, warehouse, logger),
		silver.NewTransformer(warehouse, warehouse, logger),
		quality.NewGate(warehouse, logger),
		gold.NewLoader(warehouse, warehouse, cfg.Pipeline.StrictFactResolution, logger),
		logger,
	)

	if cfg.RunMode == "once" {
		runOnce(logger, runner)
		return
	}

	serve(logger, cfg, runner, db)
}

// runOnce executes a single full pipeline run and exits non-zero on failure,
// which is what an external scheduler keys its retries on.
func runOnce(logger *log.Logger, runner *pipeline.Runner) {
	report, err := runner.Run(context.Background(), nil)
	if err != nil {
		logger.Fatalf("FATAL: Pipeline run failed: %v", err)
	}
	logger.Printf("INFO: Pipeline run succeeded: bronze=%v silver=%v gold=%v skipped_fact_rows=%d",
		report.Bronze, report.Silver, report.Gold, report.SkippedFactRows)
}

func serve(logger *log.Logger, cfg *config.Config, runner *pipeline.Runner, db *sql.DB) {
	router := chi.NewRouter()
	setupBaseMiddleware(router, logger, cfg.HttpServer.TimeoutWrite)
	registerHealthCheck(router, logger, db)
	api.NewHTTPHandler(runner).RegisterRoutes(router)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      router,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
		logger.Println("INFO: HTTP server has stopped.")
	}()

	// --- Graceful Shutdown ---
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger, timeout time.Duration) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	// A pipeline run is synchronous and can take a while; the request
	// timeout has to cover a full run, not a typical API call.
	router.Use(middleware.Timeout(timeout))
	logger.Println("INFO: Base HTTP middleware registered.")
}

func registerHealthCheck(router *chi.Mux, logger *log.Logger, db *sql.DB) {
	healthPath := "/api/v1/healthz"
	router.Get(healthPath, func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		dbStatus := "healthy"
		if err := db.PingContext(ctx); err != nil {
			dbStatus = "unhealthy"
			logger.Printf("WARN: Health check DB ping failed: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":      "healthy",
			"serviceName": defaultAppName,
			"timestamp":   time.Now().UTC().Format(time.RFC3339),
			"database":    dbStatus,
		})
	})
	logger.Printf("INFO: HTTP health check registered at %s", healthPath)
}
