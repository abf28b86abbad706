package models

import "time"

// EventStatus is the delivery state of a recorded clip.
type EventStatus string

const (
	StatusRecording EventStatus = "recording"
	StatusDelivered EventStatus = "delivered"
	StatusFailed    EventStatus = "failed"
	StatusEmpty     EventStatus = "empty"
)

// Event is one triggered recording and what happened to its clip.
type Event struct {
	ID        string        `json:"id"`
	Camera    string        `json:"camera"`
	Label     string        `json:"label"`
	Filename  string        `json:"filename"`
	FilePath  string        `json:"filepath"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Frames    int           `json:"frames"`
	Status    EventStatus   `json:"status"`
	Detail    string        `json:"detail,omitempty"`
}

// Detection is a qualifying detection from the frame that started an event.
type Detection struct {
	ID         int64   `json:"id"`
	EventID    string  `json:"event_id"`
	ObjectName string  `json:"object_name"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Confidence float64 `json:"confidence"`
}

// EventFilter contains filtering options for listing events.
type EventFilter struct {
	Camera    string
	Status    EventStatus
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
}
