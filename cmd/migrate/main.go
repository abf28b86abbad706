package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"eventcam/internal/config"
	"eventcam/internal/models"
	"eventcam/internal/recorder"
	"eventcam/internal/repository"
	"eventcam/internal/repository/sqlite"
)

// detailOrphan marks events registered from a leftover artifact.
const detailOrphan = "found on disk"

func main() {
	cfg := config.Load()
	clipDir := flag.String("clips", cfg.ClipDirectory, "Directory containing clip artifacts")
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	camera := flag.String("camera", cfg.CameraName, "Camera name for registered clips")
	flag.Parse()

	fmt.Printf("Registering leftover clips from %s in %s\n", *clipDir, *dbPath)

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	added, skipped, err := registerOrphans(sqlite.NewEventRepository(db), *clipDir, *camera, cfg.TargetLabel)
	if err != nil {
		log.Fatalf("Failed to register clips: %v", err)
	}

	if added == 0 {
		fmt.Println("No unregistered clips found")
	} else {
		fmt.Printf("✅ Registered %d clips as %s\n", added, models.StatusFailed)
	}
	if skipped > 0 {
		fmt.Printf("⚠️  Skipped %d files (invalid name or errors)\n", skipped)
	}
}

// registerOrphans inserts a failed event for every clip artifact in dir that
// the store does not know about yet.
func registerOrphans(events repository.EventRepository, dir, camera, label string) (added, skipped int, err error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to read clip directory: %w", err)
	}

	for _, file := range files {
		if file.IsDir() {
			continue
		}
		startedAt, ok := recorder.ParseClipName(file.Name())
		if !ok {
			continue
		}

		exists, err := events.Exists(file.Name())
		if err != nil {
			return added, skipped, err
		}
		if exists {
			continue
		}

		ev := &models.Event{
			ID:        uuid.NewString(),
			Camera:    camera,
			Label:     label,
			Filename:  file.Name(),
			FilePath:  filepath.Join(dir, file.Name()),
			StartedAt: startedAt,
			Status:    models.StatusFailed,
			Detail:    detailOrphan,
		}
		if err := events.Insert(ev); err != nil {
			log.Printf("⚠️  Skipping %s: %v", file.Name(), err)
			skipped++
			continue
		}
		added++
	}
	return added, skipped, nil
}
