package sqlite

import (
	"fmt"

	"eventcam/internal/models"
)

// DetectionRepository stores the detections that triggered each event.
type DetectionRepository struct {
	db *DB
}

// NewDetectionRepository creates a new SQLite detection repository.
func NewDetectionRepository(db *DB) *DetectionRepository {
	return &DetectionRepository{db: db}
}

// InsertBatch adds detections in a single transaction.
func (r *DetectionRepository) InsertBatch(detections []models.Detection) error {
	if len(detections) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO detections (event_id, object_name, x, y, width, height, confidence)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, det := range detections {
		if _, err := stmt.Exec(det.EventID, det.ObjectName, det.X, det.Y, det.Width, det.Height, det.Confidence); err != nil {
			return fmt.Errorf("failed to insert detection: %w", err)
		}
	}

	return tx.Commit()
}

// GetByEventID retrieves the trigger detections of an event in insertion order.
func (r *DetectionRepository) GetByEventID(eventID string) ([]models.Detection, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().Query(`
		SELECT id, event_id, object_name, x, y, width, height, confidence
		FROM detections WHERE event_id = ? ORDER BY id
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}
	defer rows.Close()

	var detections []models.Detection
	for rows.Next() {
		var det models.Detection
		if err := rows.Scan(&det.ID, &det.EventID, &det.ObjectName, &det.X, &det.Y, &det.Width, &det.Height, &det.Confidence); err != nil {
			return nil, fmt.Errorf("failed to scan detection: %w", err)
		}
		detections = append(detections, det)
	}

	return detections, rows.Err()
}
