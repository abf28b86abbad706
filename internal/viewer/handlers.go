package viewer

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"eventcam/internal/logger"
	"eventcam/internal/models"
	"eventcam/internal/repository"
)

const (
	// MaxUploadSize bounds one uploaded frame.
	MaxUploadSize = 10 << 20
	// FieldName is the multipart field holding the image.
	FieldName = "frame"
	// DefaultCamera names uploads that carry no camera parameter.
	DefaultCamera = "default"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// frameMessage is what viewers receive over WebSocket.
type frameMessage struct {
	Camera string `json:"camera"`
	Image  string `json:"image"`
}

func cameraParam(r *http.Request) string {
	if c := r.URL.Query().Get("camera"); c != "" {
		return c
	}
	return DefaultCamera
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// readUpload extracts the image from a multipart form or, for a plain
// image/jpeg body, the body itself.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadSize)

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(MaxUploadSize); err != nil {
			return nil, err
		}
		file, _, err := r.FormFile(FieldName)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		return io.ReadAll(file)
	}
	return io.ReadAll(r.Body)
}

// UploadFrameHandler accepts one frame per request from a relay.
func UploadFrameHandler(frames *FrameStore, hub *Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		camera := cameraParam(r)

		img, err := readUpload(w, r)
		if err != nil {
			logger.Warning("Bad upload from camera %s: %v", camera, err)
			http.Error(w, "invalid upload", http.StatusBadRequest)
			return
		}
		if len(img) == 0 {
			http.Error(w, "empty image", http.StatusBadRequest)
			return
		}

		frames.Put(camera, img)

		msg, err := json.Marshal(frameMessage{Camera: camera, Image: base64.StdEncoding.EncodeToString(img)})
		if err != nil {
			logger.Error("Failed to encode frame message: %v", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		if !hub.Broadcast(msg) {
			logger.Warning("Viewers too slow, frame from %s dropped", camera)
		}

		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}
}

// ViewWebsocketHandler registers a browser viewer with the hub.
func ViewWebsocketHandler(hub *Hub, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warning("WebSocket upgrade error: %v", err)
			return
		}
		connection.SetReadLimit(512)
		connection.SetReadDeadline(time.Now().Add(60 * time.Second))
		connection.SetPongHandler(func(appData string) error {
			connection.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})

		hub.Register(connection)
		defer hub.Unregister(connection)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				return
			}
		}
	}
}

// LatestHandler returns the newest JPEG of a camera.
func LatestHandler(frames *FrameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, ok := frames.Latest(cameraParam(r))
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Last-Modified", snap.ReceivedAt.UTC().Format(http.TimeFormat))
		w.Write(snap.JPEG)
	}
}

// StreamHandler serves a camera as multipart MJPEG.
func StreamHandler(frames *FrameStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		frames.Stream(cameraParam(r)).ServeHTTP(w, r)
	}
}

// EventsHandler lists recorded events, newest first.
// Query: camera, status, limit (default 50), offset.
func EventsHandler(events repository.EventRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := &models.EventFilter{
			Camera: q.Get("camera"),
			Status: models.EventStatus(q.Get("status")),
			Limit:  atoiDefault(q.Get("limit"), 50),
			Offset: atoiDefault(q.Get("offset"), 0),
		}

		list, err := events.GetAll(filter)
		if err != nil {
			logger.Error("Failed to list events: %v", err)
			http.Error(w, "failed to list events", http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []models.Event{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

// HealthHandler reports liveness and the cameras seen so far.
func HealthHandler(frames *FrameStore, hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"status":  "ok",
			"cameras": frames.Cameras(),
			"viewers": hub.ClientCount(),
		})
	}
}

// atoiDefault parses a positive integer, falling back to def.
func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
