// Package detection holds the detector boundary and the trigger rule applied
// to its output.
package detection

import (
	"context"
	"fmt"
	"image"

	"eventcam/internal/frame"
)

// Detection is one object found in a frame.
type Detection struct {
	ClassID    int
	Label      string
	Confidence float64
	Box        image.Rectangle
}

func (d Detection) String() string {
	return fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
}

// Detector runs inference on a frame and returns detections with confidence
// above threshold, in the order the model produced them.
type Detector interface {
	Detect(ctx context.Context, f *frame.Frame, threshold float64) ([]Detection, error)
	Close() error
}

// DetectorFunc adapts a function to the Detector interface.
type DetectorFunc func(ctx context.Context, f *frame.Frame, threshold float64) ([]Detection, error)

func (fn DetectorFunc) Detect(ctx context.Context, f *frame.Frame, threshold float64) ([]Detection, error) {
	return fn(ctx, f, threshold)
}

func (fn DetectorFunc) Close() error { return nil }
