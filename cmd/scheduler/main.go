package main

import (
	"log/slog"
	"os"

	"github.com/threatcanvas/integrations/internal/app/bootstrap"
	"github.com/threatcanvas/integrations/internal/infra/config"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	if err := bootstrap.StartScheduler("scheduler", cfg); err != nil {
		slog.Error("scheduler failed", "error", err)
		os.Exit(1)
	}
}
