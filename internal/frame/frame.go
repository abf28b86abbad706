// Package frame defines the video frame, the frame source boundary and the
// fan-out bus that lets several consumers read one capture device.
package frame

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// PixelFormat describes the layout of Frame.Data.
type PixelFormat int

const (
	// BGR24 is 3 bytes per pixel, blue first, rows top to bottom (OpenCV default).
	BGR24 PixelFormat = iota
)

func (p PixelFormat) String() string {
	switch p {
	case BGR24:
		return "bgr24"
	default:
		return fmt.Sprintf("pixelformat(%d)", int(p))
	}
}

// BytesPerPixel returns the pixel stride for the format.
func (p PixelFormat) BytesPerPixel() int {
	return 3
}

// Frame is a single captured picture. Frames handed out by a Bus are shared
// between consumers and must not be modified; call Clone before drawing.
type Frame struct {
	Seq        uint64
	CapturedAt time.Time
	Width      int
	Height     int
	Format     PixelFormat
	Data       []byte
}

// New allocates a zeroed frame of the given size.
func New(width, height int) *Frame {
	return &Frame{
		Width:  width,
		Height: height,
		Format: BGR24,
		Data:   make([]byte, width*height*BGR24.BytesPerPixel()),
	}
}

// Clone returns a deep copy.
func (f *Frame) Clone() *Frame {
	c := *f
	c.Data = make([]byte, len(f.Data))
	copy(c.Data, f.Data)
	return &c
}

// Validate checks that Data matches the declared geometry.
func (f *Frame) Validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", f.Width, f.Height)
	}
	if want := f.Width * f.Height * f.Format.BytesPerPixel(); len(f.Data) != want {
		return fmt.Errorf("frame data is %d bytes, expected %d for %dx%d %s", len(f.Data), want, f.Width, f.Height, f.Format)
	}
	return nil
}

// ErrEndOfStream is returned by Source.Next when no more frames will come.
var ErrEndOfStream = errors.New("end of stream")

// ReadError is a failed read from the capture device. Transient errors may
// succeed on the next call; the rest are fatal for the source.
type ReadError struct {
	Transient bool
	Err       error
}

func (e *ReadError) Error() string {
	kind := "fatal"
	if e.Transient {
		kind = "transient"
	}
	return fmt.Sprintf("%s frame read error: %v", kind, e.Err)
}

func (e *ReadError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable read failure.
func IsTransient(err error) bool {
	var re *ReadError
	return errors.As(err, &re) && re.Transient
}

// Source yields frames at a nominal rate.
type Source interface {
	// Next blocks until a frame is available. It returns ErrEndOfStream when
	// the source is exhausted and a *ReadError when the read failed.
	Next(ctx context.Context) (*Frame, error)
	// FPS is the nominal frame rate.
	FPS() float64
	// Size is the frame width and height in pixels.
	Size() (width, height int)
	Close() error
}
