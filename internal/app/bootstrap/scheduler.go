package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/threatcanvas/integrations/internal/app"
	"github.com/threatcanvas/integrations/internal/infra/config"
	"github.com/threatcanvas/integrations/internal/infra/db"
)

const schedulerShutdownTimeout = 30 * time.Second

// StartScheduler starts the cron scheduler service.
//
// Uses PostgreSQL advisory lock-based distributed locking to prevent duplicate
// execution when multiple scheduler instances are deployed (e.g., during
// blue-green deployment).
func StartScheduler(serviceName string, cfg *config.Config) error {
	slog.Info("starting service", "name", serviceName)
	slog.Info("config loaded",
		"database_url", maskURL(cfg.DatabaseURL),
		"rescan_schedule", cfg.RescanSchedule,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	slog.Info("postgres connected")

	container, err := app.NewSchedulerContainer(ctx, app.ContainerConfig{
		Config: cfg,
		Pool:   pool,
	})
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			slog.Error("failed to close container", "error", err)
		}
	}()

	if err := container.Scheduler.AddFunc(cfg.RescanSchedule, func() {
		container.RescanHandler.RunWithContext(ctx)
	}); err != nil {
		return fmt.Errorf("add rescan schedule: %w", err)
	}

	container.Scheduler.Start()
	slog.Info("scheduler started", "schedule", cfg.RescanSchedule)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	sig := <-shutdown
	slog.Info("shutdown signal received", "signal", sig.String())

	cancel()

	if err := container.Scheduler.StopWithTimeout(schedulerShutdownTimeout); err != nil {
		slog.Warn("scheduler shutdown timeout", "error", err)
	}
	slog.Info("scheduler stopped")

	slog.Info("service shutdown complete", "name", serviceName)
	return nil
}
