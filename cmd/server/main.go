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

	"github.com/prometheus/client_golang/prometheus"

	"tenf/portal/internal/api"
	"tenf/portal/internal/config"
	"tenf/portal/internal/db"
	"tenf/portal/internal/jobs"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
	"tenf/portal/internal/routes"
	"tenf/portal/internal/workers"
)

const shutdownTimeout = 15 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logging.Init(cfg.Server.AppEnv); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	logging.Info("TENF portal starting up",
		"environment", cfg.Server.AppEnv,
		"timestamp", time.Now().Format(time.RFC3339),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetricsRegistry(prometheus.DefaultRegisterer)

	deps, err := api.InitDependencies(ctx, cfg, m)
	if err != nil {
		logging.Fatal("Failed to initialize dependencies", "error", err)
	}
	defer deps.Close()
	logging.Info("Connected to Postgres and Redis", "blob_backend", deps.Blob.Backend())

	if err := db.AutoMigrate(deps.ORM); err != nil {
		logging.Fatal("Failed to migrate database", "error", err)
	}

	jobs.InitializeJobs(ctx, deps.Services.Consistency, cfg.Jobs.ReconcileInterval)
	var live workers.StreamLister
	if cfg.Twitch.ClientID != "" {
		live = deps.Services.Live
	}
	workers.InitWorkers(ctx, live, 0)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           routes.RegisterRoutes(deps, prometheus.DefaultGatherer),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logging.Info("Server starting", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Fatal("Server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logging.Info("Shutdown signal received, draining requests")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
	logging.Info("Server stopped")
}
