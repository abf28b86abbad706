package viewer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"eventcam/internal/logger"
	"eventcam/internal/models"
)

type stubEvents struct {
	filter *models.EventFilter
	events []models.Event
}

func (s *stubEvents) Insert(*models.Event) error                            { return nil }
func (s *stubEvents) Finish(string, int, time.Duration) error               { return nil }
func (s *stubEvents) UpdateStatus(string, models.EventStatus, string) error { return nil }
func (s *stubEvents) GetByID(string) (*models.Event, error)                 { return nil, nil }
func (s *stubEvents) GetByFilename(string) (*models.Event, error)           { return nil, nil }
func (s *stubEvents) Exists(string) (bool, error)                           { return false, nil }

func (s *stubEvents) GetAll(f *models.EventFilter) ([]models.Event, error) {
	s.filter = f
	return s.events, nil
}

func setupServer(t *testing.T, token string) (*Server, *httptest.Server, func()) {
	t.Helper()
	log := logger.NewDiscard()
	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		Frames:      NewFrameStore(),
		Hub:         NewHub(log),
		Events:      &stubEvents{events: []models.Event{{ID: "e1", Camera: "garden", Status: models.StatusDelivered}}},
		UploadToken: token,
		Logger:      log,
	}
	go s.Hub.Run(ctx)
	srv := httptest.NewServer(s.Routes())

	return s, srv, func() {
		srv.Close()
		cancel()
	}
}

func multipartBody(t *testing.T, img []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(FieldName, "frame.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile failed: %v", err)
	}
	part.Write(img)
	w.Close()
	return body, w.FormDataContentType()
}

func upload(t *testing.T, url string, img []byte, token string) *http.Response {
	t.Helper()
	body, ct := multipartBody(t, img)
	req, _ := http.NewRequest(http.MethodPost, url, body)
	req.Header.Set("Content-Type", ct)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Upload failed: %v", err)
	}
	return resp
}

func TestUpload_StoresLatestFrame(t *testing.T) {
	s, srv, cleanup := setupServer(t, "")
	defer cleanup()

	resp := upload(t, srv.URL+"/upload_frame?camera=garden", []byte("jpeg-1"), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}

	snap, ok := s.Frames.Latest("garden")
	if !ok || string(snap.JPEG) != "jpeg-1" || snap.Count != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}

	resp, err := http.Get(srv.URL + "/api/latest?camera=garden")
	if err != nil {
		t.Fatalf("GET latest failed: %v", err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.Header.Get("Content-Type") != "image/jpeg" || string(data) != "jpeg-1" {
		t.Errorf("Unexpected latest response %q %q", resp.Header.Get("Content-Type"), data)
	}
}

func TestUpload_RawJPEGBody(t *testing.T) {
	s, srv, cleanup := setupServer(t, "")
	defer cleanup()

	resp, err := http.Post(srv.URL+"/upload_frame", "image/jpeg", strings.NewReader("raw"))
	if err != nil {
		t.Fatalf("POST failed: %v", err)
	}
	resp.Body.Close()

	if snap, ok := s.Frames.Latest(DefaultCamera); !ok || string(snap.JPEG) != "raw" {
		t.Errorf("Expected raw body stored under default camera, got %+v", snap)
	}
}

func TestUpload_Rejections(t *testing.T) {
	_, srv, cleanup := setupServer(t, "s3cret")
	defer cleanup()

	tests := []struct {
		name   string
		img    []byte
		token  string
		status int
	}{
		{"missing token", []byte("x"), "", http.StatusUnauthorized},
		{"wrong token", []byte("x"), "nope", http.StatusUnauthorized},
		{"empty image", []byte{}, "s3cret", http.StatusBadRequest},
		{"accepted", []byte("x"), "s3cret", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := upload(t, srv.URL+"/upload_frame", tt.img, tt.token)
			resp.Body.Close()
			if resp.StatusCode != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, resp.StatusCode)
			}
		})
	}
}

func TestUpload_TokenQueryParam(t *testing.T) {
	_, srv, cleanup := setupServer(t, "s3cret")
	defer cleanup()

	resp := upload(t, srv.URL+"/upload_frame?token=s3cret", []byte("x"), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
}

func TestLatest_UnknownCamera(t *testing.T) {
	_, srv, cleanup := setupServer(t, "")
	defer cleanup()

	resp, err := http.Get(srv.URL + "/api/latest?camera=nope")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestViewWebsocket_ReceivesUploads(t *testing.T) {
	s, srv, cleanup := setupServer(t, "")
	defer cleanup()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/view"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for s.Hub.ClientCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Viewer never registered")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp := upload(t, srv.URL+"/upload_frame?camera=porch", []byte("jpeg-2"), "")
	resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage failed: %v", err)
	}
	var msg frameMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("Bad message: %v", err)
	}
	img, _ := base64.StdEncoding.DecodeString(msg.Image)
	if msg.Camera != "porch" || string(img) != "jpeg-2" {
		t.Errorf("Unexpected message camera=%s image=%q", msg.Camera, img)
	}
}

func TestEvents_ListsWithFilter(t *testing.T) {
	s, srv, cleanup := setupServer(t, "")
	defer cleanup()

	resp, err := http.Get(srv.URL + "/api/events?camera=garden&status=delivered&limit=5&offset=bad")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var events []models.Event
	if err := json.NewDecoder(resp.Body).Decode(&events); err != nil {
		t.Fatalf("Bad JSON: %v", err)
	}
	if len(events) != 1 || events[0].ID != "e1" {
		t.Errorf("Unexpected events %+v", events)
	}

	f := s.Events.(*stubEvents).filter
	if f.Camera != "garden" || f.Status != models.StatusDelivered || f.Limit != 5 || f.Offset != 0 {
		t.Errorf("Unexpected filter %+v", f)
	}
}

func TestHealth(t *testing.T) {
	s, srv, cleanup := setupServer(t, "")
	defer cleanup()
	s.Frames.Put("b", []byte("1"))
	s.Frames.Put("a", []byte("1"))

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer resp.Body.Close()

	var body struct {
		Status  string   `json:"status"`
		Cameras []string `json:"cameras"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Status != "ok" || len(body.Cameras) != 2 || body.Cameras[0] != "a" {
		t.Errorf("Unexpected health %+v", body)
	}
}

func TestAtoiDefault(t *testing.T) {
	tests := []struct {
		input    string
		def      int
		expected int
	}{
		{"10", 5, 10},
		{"", 5, 5},
		{"abc", 10, 10},
		{"-1", 5, 5},
		{"0", 5, 5},
	}
	for _, tt := range tests {
		if got := atoiDefault(tt.input, tt.def); got != tt.expected {
			t.Errorf("atoiDefault(%q, %d) = %d, expected %d", tt.input, tt.def, got, tt.expected)
		}
	}
}

func TestLogs_ShowAndClear(t *testing.T) {
	dir := t.TempDir()
	log, err := logger.NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer log.Close()
	log.Warning("relay slow")

	s := &Server{Frames: NewFrameStore(), Hub: NewHub(log), UploadToken: "s3cret", LogDir: dir, Logger: log}
	srv := httptest.NewServer(s.Routes())
	defer srv.Close()

	get := func(path, token string) (int, string) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+path, nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		defer resp.Body.Close()
		body, _ := io.ReadAll(resp.Body)
		return resp.StatusCode, string(body)
	}

	if code, _ := get("/api/logs/warning", ""); code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", code)
	}
	if code, _ := get("/api/logs/debug", "s3cret"); code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown level, got %d", code)
	}
	code, body := get("/api/logs/warning", "s3cret")
	if code != http.StatusOK || !strings.Contains(body, "relay slow") {
		t.Fatalf("Expected warning log content, got %d %q", code, body)
	}

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/api/logs/warning", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("DELETE failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("Expected 204, got %d", resp.StatusCode)
	}
	if _, body := get("/api/logs/warning", "s3cret"); body != "" {
		t.Errorf("Expected cleared log, got %q", body)
	}
}
