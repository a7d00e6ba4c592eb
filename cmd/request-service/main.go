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

	"github.com/bloodbank/bloodbank/internal/clients"
	"github.com/bloodbank/bloodbank/internal/db"
	"github.com/bloodbank/bloodbank/internal/request"
	"github.com/bloodbank/bloodbank/internal/requesthttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "[request-service] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- DB ---
	database := db.MustOpen(cfg.DatabaseDSN)
	defer database.Close()

	if err := request.EnsureSchema(ctx, database); err != nil {
		logger.Fatalf("db schema: %v", err)
	}

	repo := request.NewRepository(database)

	// --- ledger client ---
	ledgerClient, err := clients.NewLedger(cfg.LedgerURL, cfg.LedgerTimeout)
	if err != nil {
		logger.Fatalf("ledger client: %v", err)
	}

	coordinator := request.NewCoordinator(repo, ledgerClient, logger)

	if cfg.EmergencyScanEnabled {
		scheduler := request.NewEmergencyScheduler(coordinator, cfg.EmergencyScanInterval, logger)
		scheduler.Start()
		defer scheduler.Stop()
	}

	// --- HTTP ---
	r := requesthttp.NewRouter(coordinator)

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)

	go func() {
		logger.Printf("http listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("shutdown signal: %s", sig)
	case err := <-errCh:
		logger.Printf("fatal error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = httpServer.Shutdown(shutdownCtx)
	cancel()

	logger.Printf("shutdown complete")
}

type config struct {
	HTTPAddr              string
	DatabaseDSN           string
	LedgerURL             string
	LedgerTimeout         time.Duration
	EmergencyScanEnabled  bool
	EmergencyScanInterval time.Duration
}

func loadConfig() config {
	return config{
		HTTPAddr:              env("HTTP_ADDR", ":8084"),
		DatabaseDSN:           db.MustGetDSN("REQUEST_DB_DSN"),
		LedgerURL:             env("LEDGER_URL", "http://localhost:8083"),
		LedgerTimeout:         envDuration("LEDGER_TIMEOUT", 5*time.Second),
		EmergencyScanEnabled:  envBool("EMERGENCY_SCAN_ENABLED", true),
		EmergencyScanInterval: envDuration("EMERGENCY_SCAN_INTERVAL", time.Minute),
	}
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	switch v {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return fallback
	}
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
