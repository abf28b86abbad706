package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"eventcam/internal/app"
	"eventcam/internal/config"
	"eventcam/internal/logger"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	appLogger, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	application, err := app.NewApp(cfg, appLogger)
	if err != nil {
		appLogger.Error("Failed to start: %v", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	runErr := application.Run(ctx)
	stop()

	if err := application.Close(); err != nil {
		appLogger.Warning("Cleanup failed: %v", err)
	}
	if runErr != nil {
		appLogger.Error("Stopped: %v", runErr)
		os.Exit(1)
	}
	appLogger.Info("🛑 Stopped")
}
