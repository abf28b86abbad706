package dispatch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestTelegram_SendTextAndVideo(t *testing.T) {
	var gotText, gotChat, gotVideoName, gotVideoBody string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botTOKEN/sendMessage":
			var payload map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
				t.Errorf("Bad JSON: %v", err)
			}
			gotText, _ = payload["text"].(string)
			gotChat, _ = payload["chat_id"].(string)
		case "/botTOKEN/sendVideo":
			if r.FormValue("chat_id") != "42" {
				t.Errorf("Expected chat_id 42, got %q", r.FormValue("chat_id"))
			}
			file, header, err := r.FormFile("video")
			if err != nil {
				t.Errorf("Missing video: %v", err)
				break
			}
			defer file.Close()
			data, _ := io.ReadAll(file)
			gotVideoName = header.Filename
			gotVideoBody = string(data)
		default:
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	n, err := NewTelegramNotifier(srv.URL+"/", "TOKEN", "42")
	if err != nil {
		t.Fatalf("NewTelegramNotifier failed: %v", err)
	}

	if err := n.SendText(context.Background(), "🚨 Monkey detected!"); err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotText != "🚨 Monkey detected!" || gotChat != "42" {
		t.Errorf("Unexpected message %q to %q", gotText, gotChat)
	}

	path := filepath.Join(t.TempDir(), "event_1.mp4")
	os.WriteFile(path, []byte("video-bytes"), 0644)
	if err := n.SendFile(context.Background(), path); err != nil {
		t.Fatalf("SendFile failed: %v", err)
	}
	if gotVideoName != "event_1.mp4" || gotVideoBody != "video-bytes" {
		t.Errorf("Unexpected upload %q %q", gotVideoName, gotVideoBody)
	}
}

func TestTelegram_APIRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"ok":false,"description":"Bad Request: chat not found"}`))
	}))
	defer srv.Close()

	n, _ := NewTelegramNotifier(srv.URL, "TOKEN", "42")
	err := n.SendText(context.Background(), "hi")
	if err == nil || !strings.Contains(err.Error(), "chat not found") {
		t.Errorf("Expected API description in error, got %v", err)
	}
}

func TestTelegram_ErrorsDoNotLeakToken(t *testing.T) {
	n, _ := NewTelegramNotifier("http://127.0.0.1:1", "SECRET123", "42")
	err := n.SendText(context.Background(), "hi")
	if err == nil {
		t.Fatal("Expected connection error")
	}
	if strings.Contains(err.Error(), "SECRET123") {
		t.Errorf("Token leaked in error: %v", err)
	}
}

func TestTelegram_RequiresCredentials(t *testing.T) {
	if _, err := NewTelegramNotifier("", "", "42"); err == nil {
		t.Error("Expected error without token")
	}
	if _, err := NewTelegramNotifier("", "t", ""); err == nil {
		t.Error("Expected error without chat id")
	}
}

func TestTelegram_MissingFile(t *testing.T) {
	n, _ := NewTelegramNotifier("http://127.0.0.1:1", "t", "42")
	if err := n.SendFile(context.Background(), filepath.Join(t.TempDir(), "nope.mp4")); err == nil {
		t.Error("Expected error for missing file")
	}
}
