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

	appLogger, err := logger.NewLogger(cfg.LogDirectory)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := app.NewRelayd(cfg, appLogger)
	defer server.Close()

	if err := server.Run(ctx); err != nil {
		appLogger.Error("Relay viewer failed: %v", err)
	}
}
