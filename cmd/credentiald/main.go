// main.go - Credential enrollment daemon.
//
// Runs the institution-side service: accepts commitment enrollments while
// registration is open, and seals predicate lists into published Merkle roots
// on demand. State lives in a single JSON store; privileged endpoints are
// gated by the admin token from the config file.
//
// Usage:
//   go run ./cmd/credentiald -config credentiald.json

package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"anoncred/internal/enrollment"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

func main() {
	configPath := flag.String("config", "credentiald.json", "path to config file")
	flag.Parse()

	cfg, err := LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	auditPath := ""
	if cfg.EnableAudit {
		auditPath = cfg.AuditLogPath
	}
	logger, err := NewLogger(cfg.LogLevel, cfg.LogFile, auditPath)
	if err != nil {
		log.Fatalf("logger setup failed: %v", err)
	}
	defer logger.Close()

	store, err := enrollment.OpenStore(cfg.StorePath)
	if err != nil {
		logger.Fatal("store open failed: %v", err)
	}
	defer store.Close()

	service, err := enrollment.NewService(store)
	if err != nil {
		logger.Fatal("service init failed: %v", err)
	}

	server := NewServer(cfg, logger, service)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("Received %v, shutting down", sig)
	case err := <-errCh:
		if err != nil {
			logger.Fatal("server failed: %v", err)
		}
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error: %v", err)
	}
	logger.Info("Shutdown complete")
}
