package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/threatcanvas/integrations/internal/app"
	handlerwebhook "github.com/threatcanvas/integrations/internal/handler/webhook"
	"github.com/threatcanvas/integrations/internal/infra/config"
	"github.com/threatcanvas/integrations/internal/infra/db"
)

const httpShutdownTimeout = 10 * time.Second

// StartWebhookd starts the webhook receiver HTTP service.
func StartWebhookd(serviceName string, cfg *config.Config) error {
	slog.Info("starting service", "name", serviceName)
	slog.Info("config loaded",
		"database_url", maskURL(cfg.DatabaseURL),
		"http_addr", cfg.HTTPAddr,
	)

	ctx := context.Background()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("database connection: %w", err)
	}
	defer pool.Close()

	slog.Info("postgres connected")

	container, err := app.NewWebhookdContainer(ctx, app.ContainerConfig{
		Config: cfg,
		Pool:   pool,
	})
	if err != nil {
		return fmt.Errorf("container: %w", err)
	}

	fiberApp := fiber.New(fiber.Config{
		AppName: serviceName,
	})
	handlerwebhook.SetupRoutes(fiberApp, container.Handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- fiberApp.Listen(cfg.HTTPAddr, fiber.ListenConfig{
			DisableStartupMessage: true,
		})
	}()
	slog.Info("http server listening", "addr", cfg.HTTPAddr)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGTERM, syscall.SIGINT)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown signal received", "signal", sig.String())
	}

	if err := fiberApp.ShutdownWithTimeout(httpShutdownTimeout); err != nil {
		slog.Warn("http server shutdown timeout", "error", err)
	}
	slog.Info("http server stopped")

	slog.Info("service shutdown complete", "name", serviceName)
	return nil
}
