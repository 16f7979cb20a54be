package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/archivio-hq/collection-notifier/internal/app"
	"github.com/archivio-hq/collection-notifier/internal/config"
	"github.com/archivio-hq/collection-notifier/internal/logger"
)

func main() {
	schedule := flag.String("schedule", "", "cron spec for an in-process schedule loop; empty runs a single pass")
	flag.Parse()

	if err := run(*schedule); err != nil {
		fmt.Fprintf(os.Stderr, "notifier failed: %v\n", err)
		os.Exit(1)
	}
}

func run(schedule string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err := logger.Init(cfg.LogLevel); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cfg.ResolveSecrets(ctx); err != nil {
		logger.ErrorObj("secret resolution failed", "error", err.Error())
		return err
	}

	logger.InfoObj("notifier starting", "app_meta", map[string]any{
		"app_name": cfg.AppName,
		"app_env":  cfg.Env,
		"storage":  cfg.StorageType,
		"schedule": schedule,
	})

	notifier, err := app.New(ctx, cfg)
	if err != nil {
		logger.ErrorObj("failed to initialize notifier", "error", err.Error())
		return err
	}
	defer notifier.Close()

	if schedule != "" {
		return notifier.RunSchedule(ctx, schedule)
	}
	return notifier.RunOnce(ctx)
}
