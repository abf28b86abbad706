package recorder

import (
	"fmt"

	"eventcam/internal/frame"
)

// ClipWriter appends frames to an open clip artifact.
type ClipWriter interface {
	Write(f *frame.Frame) error
	Close() error
}

// ClipSink creates clip artifacts of one container format.
type ClipSink interface {
	// Ext is the container extension including the dot.
	Ext() string
	Create(path string, fps float64, width, height int) (ClipWriter, error)
}

// WriteError is a failed clip I/O operation.
type WriteError struct {
	Op   string
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("clip %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }
