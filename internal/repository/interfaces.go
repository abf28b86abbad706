package repository

import (
	"time"

	"eventcam/internal/models"
)

// EventRepository defines the interface for recorded event operations.
type EventRepository interface {
	// Create operations
	Insert(ev *models.Event) error

	// Update operations
	Finish(id string, frames int, duration time.Duration) error
	UpdateStatus(id string, status models.EventStatus, detail string) error

	// Read operations
	GetByID(id string) (*models.Event, error)
	GetByFilename(filename string) (*models.Event, error)
	GetAll(filter *models.EventFilter) ([]models.Event, error)
	Exists(filename string) (bool, error)
}

// DetectionRepository defines the interface for trigger detection operations.
type DetectionRepository interface {
	InsertBatch(detections []models.Detection) error
	GetByEventID(eventID string) ([]models.Detection, error)
}
