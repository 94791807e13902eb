package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattjoyce/hookguard/internal/config"
	"github.com/mattjoyce/hookguard/internal/delivery"
	"github.com/mattjoyce/hookguard/internal/lock"
	"github.com/mattjoyce/hookguard/internal/log"
	"github.com/mattjoyce/hookguard/internal/metrics"
	"github.com/mattjoyce/hookguard/internal/retention"
	"github.com/mattjoyce/hookguard/internal/storage"
	"github.com/mattjoyce/hookguard/internal/webhook"
)

func runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to configuration file")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to parse flags: %v\n", err)
		return 1
	}

	path := resolveConfigPath(*configPath)
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.WithComponent("main")
	logger.Info("hookguard starting", "version", version, "config", cfg.Path)

	if len(cfg.Webhooks.Endpoints) == 0 {
		logger.Error("no webhook endpoints configured", "config", cfg.Path)
		return 1
	}

	pidLockPath := lock.PathFor(cfg.State.Path)
	pidLock, err := lock.AcquirePIDLock(pidLockPath)
	if err != nil {
		logger.Error("failed to acquire PID lock (another instance may be running)", "path", pidLockPath, "error", err)
		return 1
	}
	defer pidLock.Release()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open database", "path", cfg.State.Path, "error", err)
		return 1
	}
	defer db.Close()
	logger.Info("database opened", "path", cfg.State.Path)

	store := delivery.New(db)

	webhookConfig, err := webhook.FromGlobalConfig(cfg)
	if err != nil {
		logger.Error("failed to configure webhooks", "error", err)
		return 1
	}
	for _, ep := range webhookConfig.Endpoints {
		log.WithEndpoint(ep.Path).Info("webhook endpoint registered",
			"name", ep.Name,
			"signature_header", ep.SignatureHeader,
			"max_body_size", ep.MaxBodySize,
			"public_url", ep.PublicURL,
		)
	}

	var m *metrics.Metrics
	if cfg.Metrics.IsEnabled() {
		m = metrics.New(nil)
		logger.Info("metrics enabled", "path", cfg.Metrics.Path)
	}

	janitor := retention.New(store, cfg.Service.Retention, retention.DefaultInterval, log.Get())
	if err := janitor.Start(ctx); err != nil {
		logger.Error("failed to start retention janitor", "error", err)
		return 1
	}
	defer janitor.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	server := webhook.New(webhookConfig, store, m, log.WithComponent("webhook"))
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(ctx)
	}()

	logger.Info("hookguard running (press Ctrl+C to stop)", "listen", webhookConfig.Listen)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
		if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("webhook server shutdown failed", "error", err)
			return 1
		}
	case err := <-errCh:
		logger.Error("webhook server failed", "error", err)
		return 1
	}

	logger.Info("hookguard stopped")
	return 0
}
