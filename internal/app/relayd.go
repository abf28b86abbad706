package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"eventcam/internal/config"
	"eventcam/internal/logger"
	"eventcam/internal/repository/sqlite"
	"eventcam/internal/viewer"
)

const shutdownTimeout = 5 * time.Second

// Relayd is the viewer endpoint the camera relays frames to.
type Relayd struct {
	config *config.Config
	logger *logger.Logger
	db     *sqlite.DB
	hub    *viewer.Hub
	server *http.Server
}

// NewRelayd builds the viewer server. The event store is optional: when it
// cannot be opened /api/events is not served.
func NewRelayd(cfg *config.Config, log *logger.Logger) *Relayd {
	r := &Relayd{config: cfg, logger: log, hub: viewer.NewHub(log)}

	srv := &viewer.Server{
		Frames:      viewer.NewFrameStore(),
		Hub:         r.hub,
		UploadToken: cfg.UploadToken,
		LogDir:      cfg.LogDirectory,
		Logger:      log,
	}
	db, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		log.Warning("Event store unavailable, /api/events disabled: %v", err)
	} else {
		r.db = db
		srv.Events = sqlite.NewEventRepository(db)
	}

	r.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (r *Relayd) Run(ctx context.Context) error {
	go r.hub.Run(ctx)

	r.logger.Info("🚀 Relay viewer")
	r.logger.Info("📍 URL: http://localhost:%d", r.config.Port)
	if r.config.UploadToken == "" {
		r.logger.Warning("UPLOAD_TOKEN not set, uploads are unauthenticated")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	r.logger.Info("🛑 Shutting down relay viewer")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return r.server.Shutdown(shutdownCtx)
}

// Close releases the event store.
func (r *Relayd) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}
