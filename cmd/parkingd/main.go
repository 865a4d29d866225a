package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SherClockHolmes/webpush-go"

	"parking-ledger-backend/config"
	"parking-ledger-backend/internal/api"
	"parking-ledger-backend/internal/db"
	"parking-ledger-backend/internal/ledger"
	"parking-ledger-backend/internal/logger"
	"parking-ledger-backend/internal/metrics"
	"parking-ledger-backend/internal/mw"
	"parking-ledger-backend/internal/notification"
	"parking-ledger-backend/internal/registry"
	"parking-ledger-backend/internal/store"
)

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config/config.yaml" // Default path for local development
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", configPath, err)
	}

	// Setup logger
	appLog, err := logger.New(cfg.Log.Mode)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer appLog.Sync()
	appLog.Info("configuration loaded", "path", configPath)

	loc, err := time.LoadLocation(cfg.Ledger.Timezone)
	if err != nil {
		appLog.Fatal("invalid ledger timezone", "timezone", cfg.Ledger.Timezone, "error", err)
	}

	// Initialize database
	gormDB, err := db.Init(&cfg.Database, appLog)
	if err != nil {
		appLog.Fatal("failed to initialize database", "error", err)
	}
	appLog.Info("database initialized", "driver", cfg.Database.Driver)

	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	appStore := store.NewGormStore(gormDB)
	appMetrics := metrics.New()

	// Bring the facility mirror and counters up to date before serving.
	registrySvc := registry.NewService(&cfg.Registry, appStore, appLog, appMetrics)
	if err := registrySvc.Seed(ctx); err != nil {
		appLog.Fatal("failed to seed facilities", "error", err)
	}
	if err := appStore.RebuildCounters(ctx); err != nil {
		appLog.Fatal("failed to rebuild occupancy counters", "error", err)
	}
	responses := mw.NewResponseCache(time.Duration(cfg.Server.CacheTTLSeconds) * time.Second)
	registrySvc.OnSync(responses.Invalidate)
	go registrySvc.Run(ctx)

	webpushOptions := webpush.Options{
		VAPIDPublicKey:  cfg.Push.PublicKey,
		VAPIDPrivateKey: cfg.Push.PrivateKey,
		Subscriber:      cfg.Push.Subject,
		TTL:             cfg.Push.TTL,
	}

	senders, closeSenders, err := notification.BuildSenders(ctx, &cfg.Notification, gormDB, &webpushOptions, appLog)
	if err != nil {
		appLog.Fatal("failed to build notification senders", "error", err)
	}
	defer closeSenders()

	pool := notification.NewWorkerPool(cfg.WorkerPool.Size, cfg.Notification.QueueSize,
		cfg.Notification.Timeout(), senders, appLog, appMetrics)
	pool.Start(ctx)

	ledgerSvc := ledger.NewService(appStore, pool, cfg.Ledger.MaxConcurrentOps, appLog,
		ledger.WithLocation(loc), ledger.WithMetrics(appMetrics))

	// Initialize router
	handler := api.NewHandler(ledgerSvc, appStore, &webpushOptions, appLog)
	router := api.NewRouter(handler, &cfg.Server, appMetrics, responses)
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start the server in a goroutine
	go func() {
		appLog.Info("HTTP server starting", "port", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal("HTTP server ListenAndServe", "error", err)
		}
	}()

	// Setup signal handling for graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	// Block until a signal is received.
	<-stop
	appLog.Info("shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		appLog.Error("HTTP server Shutdown", "error", err)
	}

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer drainCancel()
	if err := pool.Shutdown(drainCtx); err != nil {
		appLog.Warn("notification queue not fully delivered", "error", err)
	}

	cancel()
	pool.Wait()

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	appLog.Info("server gracefully stopped")
}
