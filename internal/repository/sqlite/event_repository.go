package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"eventcam/internal/models"
)

const eventColumns = `id, camera, label, filename, filepath, started_at, duration_ms, frames, status, detail`

// EventRepository implements repository.EventRepository for SQLite.
type EventRepository struct {
	db *DB
}

// NewEventRepository creates a new SQLite event repository.
func NewEventRepository(db *DB) *EventRepository {
	return &EventRepository{db: db}
}

// Insert adds a new event. The caller assigns the ID.
func (r *EventRepository) Insert(ev *models.Event) error {
	r.db.Lock()
	defer r.db.Unlock()

	_, err := r.db.Conn().Exec(`
		INSERT INTO events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Camera, ev.Label, ev.Filename, ev.FilePath, ev.StartedAt.UTC(),
		ev.Duration.Milliseconds(), ev.Frames, string(ev.Status), ev.Detail)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// Finish stores the final frame count and clip length.
func (r *EventRepository) Finish(id string, frames int, duration time.Duration) error {
	return r.update(`UPDATE events SET frames = ?, duration_ms = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		frames, duration.Milliseconds(), id)
}

// UpdateStatus sets the delivery status and an optional detail message.
func (r *EventRepository) UpdateStatus(id string, status models.EventStatus, detail string) error {
	return r.update(`UPDATE events SET status = ?, detail = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		string(status), detail, id)
}

func (r *EventRepository) update(query string, args ...interface{}) error {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("event %v not found", args[len(args)-1])
	}
	return nil
}

// GetByID retrieves an event by its ID.
func (r *EventRepository) GetByID(id string) (*models.Event, error) {
	return r.getOne(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)
}

// GetByFilename retrieves an event by its clip filename.
func (r *EventRepository) GetByFilename(filename string) (*models.Event, error) {
	return r.getOne(`SELECT `+eventColumns+` FROM events WHERE filename = ?`, filename)
}

func (r *EventRepository) getOne(query string, arg interface{}) (*models.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	ev, err := scanEvent(r.db.Conn().QueryRow(query, arg))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return ev, nil
}

// GetAll retrieves events based on filter criteria, newest first.
func (r *EventRepository) GetAll(filter *models.EventFilter) ([]models.Event, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	if filter == nil {
		filter = &models.EventFilter{}
	}

	query := `SELECT ` + eventColumns + ` FROM events WHERE 1=1`
	args := []interface{}{}

	if filter.Camera != "" {
		query += " AND camera = ?"
		args = append(args, filter.Camera)
	}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, string(filter.Status))
	}

	if !filter.StartDate.IsZero() {
		query += " AND started_at >= ?"
		args = append(args, filter.StartDate.UTC())
	}

	if !filter.EndDate.IsZero() {
		query += " AND started_at <= ?"
		args = append(args, filter.EndDate.UTC())
	}

	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			query += " LIMIT -1"
		}
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *ev)
	}

	return events, rows.Err()
}

// Exists checks if an event with the given clip filename exists.
func (r *EventRepository) Exists(filename string) (bool, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var count int
	err := r.db.Conn().QueryRow(`SELECT COUNT(*) FROM events WHERE filename = ?`, filename).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to check event: %w", err)
	}
	return count > 0, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var (
		ev         models.Event
		status     string
		durationMs int64
	)
	err := row.Scan(&ev.ID, &ev.Camera, &ev.Label, &ev.Filename, &ev.FilePath, &ev.StartedAt,
		&durationMs, &ev.Frames, &status, &ev.Detail)
	if err != nil {
		return nil, err
	}
	ev.Status = models.EventStatus(status)
	ev.Duration = time.Duration(durationMs) * time.Millisecond
	return &ev, nil
}
