package viewer

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"eventcam/internal/logger"
	"eventcam/internal/repository"
)

// Server holds what the routes need.
type Server struct {
	Frames      *FrameStore
	Hub         *Hub
	Events      repository.EventRepository
	UploadToken string
	LogDir      string
	Logger      *logger.Logger
}

// Routes registers the viewer endpoints.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", HealthHandler(s.Frames, s.Hub))

	r.Group(func(r chi.Router) {
		r.Use(UploadTokenMiddleware(s.UploadToken))
		r.Post("/upload_frame", UploadFrameHandler(s.Frames, s.Hub, s.Logger))
		if s.LogDir != "" {
			r.Get("/api/logs/{level}", ShowLogsHandler(s.LogDir))
			r.Delete("/api/logs/{level}", ClearLogsHandler(s.Logger))
		}
	})

	r.Get("/api/view", ViewWebsocketHandler(s.Hub, s.Logger))
	r.Get("/api/latest", LatestHandler(s.Frames))
	r.Get("/stream", StreamHandler(s.Frames))
	if s.Events != nil {
		r.Get("/api/events", EventsHandler(s.Events, s.Logger))
	}

	return r
}
