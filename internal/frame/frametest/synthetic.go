// Package frametest provides synthetic frame sources for tests.
package frametest

import (
	"context"
	"image/color"
	"sync"
	"time"

	"eventcam/internal/frame"
)

// Synthetic produces Count frames of a fixed size, one every Interval, then
// returns frame.ErrEndOfStream. Errors[i] is returned instead of frame i
// (1-based) when set; the frame index still advances.
type Synthetic struct {
	Count    int
	Width    int
	Height   int
	Rate     float64
	Interval time.Duration
	Errors   map[int]error

	mu     sync.Mutex
	next   int
	closed bool
	last   time.Time
}

// NewSynthetic returns a 64x48 source that paces frames at interval while
// reporting rate as its nominal FPS.
func NewSynthetic(count int, rate float64, interval time.Duration) *Synthetic {
	return &Synthetic{
		Count:    count,
		Width:    64,
		Height:   48,
		Rate:     rate,
		Interval: interval,
	}
}

func (s *Synthetic) Next(ctx context.Context) (*frame.Frame, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, &frame.ReadError{Err: frame.ErrBusClosed}
	}
	if s.next >= s.Count {
		s.mu.Unlock()
		return nil, frame.ErrEndOfStream
	}
	wait := time.Duration(0)
	if !s.last.IsZero() {
		wait = s.Interval - time.Since(s.last)
	}
	s.mu.Unlock()

	if wait > 0 {
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	s.last = time.Now()
	if err, ok := s.Errors[s.next]; ok {
		return nil, err
	}

	f := frame.New(s.Width, s.Height)
	f.Seq = uint64(s.next)
	f.CapturedAt = s.last
	frame.Fill(f, color.RGBA{R: uint8(s.next), G: 0x40, B: 0x80, A: 0xff})
	return f, nil
}

func (s *Synthetic) FPS() float64 { return s.Rate }

func (s *Synthetic) Size() (int, int) { return s.Width, s.Height }

func (s *Synthetic) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Produced returns how many frame slots have been consumed so far.
func (s *Synthetic) Produced() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.next
}

// Closed reports whether Close was called.
func (s *Synthetic) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
