package viewer

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"eventcam/internal/logger"
)

var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves one of the log files: /api/logs/{level}.
func ShowLogsHandler(logDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFiles[chi.URLParam(r, "level")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		serveLogFile(w, r, logDir, name)
	}
}

// ClearLogsHandler truncates one of the log files.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, ok := logFiles[chi.URLParam(r, "level")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		if err := logger.CleanLogs(name); err != nil {
			http.Error(w, "failed to clear log", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func serveLogFile(w http.ResponseWriter, r *http.Request, logDir, filename string) {
	filePath := filepath.Join(logDir, filename)
	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Log file not found: "+filename, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, filePath)
}
