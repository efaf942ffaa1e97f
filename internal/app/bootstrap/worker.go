package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/threatcanvas/integrations/internal/app"
	"github.com/threatcanvas/integrations/internal/infra/config"
	"github.com/threatcanvas/integrations/internal/infra/db"
	infraqueue "github.com/threatcanvas/integrations/internal/infra/queue"
)

// StartWorker starts the queue worker service. Horizontal scaling is safe:
// multiple worker instances share the queue workload.
func StartWorker(serviceName string, cfg *config.Config) error {
	slog.Info("starting service", "name", serviceName)
	slog.Info("config loaded", "database_url", maskURL(cfg.DatabaseURL))

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	slog.Info("postgres connected")

	container, err := app.NewWorkerContainer(ctx, app.ContainerConfig{
		Config: cfg,
		Pool:   pool,
	})
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}

	srv, err := infraqueue.NewServer(ctx, infraqueue.ServerConfig{
		Pool:       pool,
		MaxWorkers: cfg.QueueMaxWorkers,
		Workers:    container.Workers,
	})
	if err != nil {
		return fmt.Errorf("queue server: %w", err)
	}

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start queue server: %w", err)
	}
	slog.Info("worker ready", "max_workers", cfg.QueueMaxWorkers)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	sig := <-shutdown
	slog.Info("shutdown signal received", "signal", sig.String())

	if err := srv.Stop(context.Background()); err != nil {
		slog.Warn("queue server shutdown error", "error", err)
	}
	slog.Info("queue server stopped")

	slog.Info("service shutdown complete", "name", serviceName)
	return nil
}
