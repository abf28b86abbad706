package sqlite

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"eventcam/internal/models"
)

func setupTestDB(t *testing.T) (*DB, func()) {
	t.Helper()
	tempDir, err := os.MkdirTemp("", "eventcam_db_test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	db, err := New(filepath.Join(tempDir, "data", "events.db"))
	if err != nil {
		os.RemoveAll(tempDir)
		t.Fatalf("Failed to create database: %v", err)
	}

	return db, func() {
		db.Close()
		os.RemoveAll(tempDir)
	}
}

func newEvent(id, filename string, startedAt time.Time) *models.Event {
	return &models.Event{
		ID:        id,
		Camera:    "garden",
		Label:     "Monkey",
		Filename:  filename,
		FilePath:  "/clips/" + filename,
		StartedAt: startedAt,
		Duration:  5 * time.Second,
		Status:    models.StatusRecording,
	}
}

func TestEventRepository_InsertAndGet(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(db)
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ev := newEvent("a1", "event_20240501T120000.000.mp4", started)

	if err := repo.Insert(ev); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := repo.GetByID("a1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got == nil {
		t.Fatal("Expected event, got nil")
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("Expected started_at %v, got %v", started, got.StartedAt)
	}
	got.StartedAt = ev.StartedAt
	if diff := cmp.Diff(ev, got); diff != "" {
		t.Errorf("Event mismatch (-want +got):\n%s", diff)
	}

	byName, err := repo.GetByFilename(ev.Filename)
	if err != nil || byName == nil || byName.ID != "a1" {
		t.Errorf("GetByFilename returned %v, %v", byName, err)
	}
}

func TestEventRepository_GetMissing(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	got, err := NewEventRepository(db).GetByID("nope")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got != nil {
		t.Errorf("Expected nil for missing event, got %+v", got)
	}
}

func TestEventRepository_DuplicateFilename(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(db)
	now := time.Now()
	if err := repo.Insert(newEvent("a", "event_x.mp4", now)); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := repo.Insert(newEvent("b", "event_x.mp4", now)); err == nil {
		t.Error("Expected unique constraint violation")
	}
}

func TestEventRepository_FinishAndStatus(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(db)
	if err := repo.Insert(newEvent("a", "event_a.mp4", time.Now())); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	if err := repo.Finish("a", 148, 4950*time.Millisecond); err != nil {
		t.Fatalf("Finish failed: %v", err)
	}
	if err := repo.UpdateStatus("a", models.StatusFailed, "text: connection refused"); err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	got, _ := repo.GetByID("a")
	if got.Frames != 148 || got.Duration != 4950*time.Millisecond {
		t.Errorf("Expected 148 frames / 4.95s, got %d / %v", got.Frames, got.Duration)
	}
	if got.Status != models.StatusFailed || got.Detail != "text: connection refused" {
		t.Errorf("Expected failed status with detail, got %s %q", got.Status, got.Detail)
	}

	if err := repo.UpdateStatus("missing", models.StatusDelivered, ""); err == nil {
		t.Error("Expected error updating a missing event")
	}
}

func TestEventRepository_GetAllFilters(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(db)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"e1", "e2", "e3", "e4"} {
		ev := newEvent(id, "event_"+id+".mp4", base.Add(time.Duration(i)*time.Hour))
		if i%2 == 1 {
			ev.Camera = "porch"
		}
		if err := repo.Insert(ev); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	repo.UpdateStatus("e4", models.StatusDelivered, "")

	tests := []struct {
		name   string
		filter *models.EventFilter
		want   []string
	}{
		{"all newest first", nil, []string{"e4", "e3", "e2", "e1"}},
		{"camera", &models.EventFilter{Camera: "porch"}, []string{"e4", "e2"}},
		{"status", &models.EventFilter{Status: models.StatusDelivered}, []string{"e4"}},
		{"date range", &models.EventFilter{StartDate: base.Add(time.Hour), EndDate: base.Add(2 * time.Hour)}, []string{"e3", "e2"}},
		{"limit offset", &models.EventFilter{Limit: 2, Offset: 1}, []string{"e3", "e2"}},
		{"offset only", &models.EventFilter{Offset: 3}, []string{"e1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events, err := repo.GetAll(tt.filter)
			if err != nil {
				t.Fatalf("GetAll failed: %v", err)
			}
			var ids []string
			for _, ev := range events {
				ids = append(ids, ev.ID)
			}
			if diff := cmp.Diff(tt.want, ids); diff != "" {
				t.Errorf("IDs mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEventRepository_Exists(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewEventRepository(db)
	repo.Insert(newEvent("a", "event_a.mp4", time.Now()))

	if ok, err := repo.Exists("event_a.mp4"); err != nil || !ok {
		t.Errorf("Expected event_a.mp4 to exist, got %v %v", ok, err)
	}
	if ok, err := repo.Exists("event_b.mp4"); err != nil || ok {
		t.Errorf("Expected event_b.mp4 to be missing, got %v %v", ok, err)
	}
}

func TestDetectionRepository_Batch(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	events := NewEventRepository(db)
	dets := NewDetectionRepository(db)
	events.Insert(newEvent("a", "event_a.mp4", time.Now()))

	in := []models.Detection{
		{EventID: "a", ObjectName: "Monkey", X: 1, Y: 2, Width: 3, Height: 4, Confidence: 0.95},
		{EventID: "a", ObjectName: "Monkey", X: 5, Y: 6, Width: 7, Height: 8, Confidence: 0.85},
	}
	if err := dets.InsertBatch(in); err != nil {
		t.Fatalf("InsertBatch failed: %v", err)
	}

	got, err := dets.GetByEventID("a")
	if err != nil {
		t.Fatalf("GetByEventID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 detections, got %d", len(got))
	}
	for i := range got {
		got[i].ID = 0
	}
	if diff := cmp.Diff(in, got); diff != "" {
		t.Errorf("Detections mismatch (-want +got):\n%s", diff)
	}

	if err := dets.InsertBatch([]models.Detection{{EventID: "missing", ObjectName: "x"}}); err == nil {
		t.Error("Expected foreign key violation for unknown event")
	}
}
