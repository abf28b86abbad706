package ai

import (
	"fmt"
	"image"
	"image/color"

	"gocv.io/x/gocv"

	"eventcam/internal/detection"
	"eventcam/internal/frame"
	"eventcam/internal/service/capture"
)

// Annotator draws boxes and "label (score)" captions with OpenCV.
type Annotator struct {
	Color color.RGBA
}

// NewAnnotator returns a red annotator.
func NewAnnotator() *Annotator {
	return &Annotator{Color: color.RGBA{R: 255, G: 0, B: 0, A: 0}}
}

// Annotate draws onto f in place.
func (a *Annotator) Annotate(f *frame.Frame, dets []detection.Detection) error {
	mat, err := capture.ToMat(f)
	if err != nil {
		return err
	}
	defer mat.Close()

	for _, d := range dets {
		if err := gocv.Rectangle(&mat, d.Box, a.Color, 2); err != nil {
			return fmt.Errorf("failed to draw rectangle: %w", err)
		}
		label := fmt.Sprintf("%s (%.2f)", d.Label, d.Confidence)
		pt := image.Pt(d.Box.Min.X, d.Box.Min.Y-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, a.Color, 1); err != nil {
			return fmt.Errorf("failed to draw text: %w", err)
		}
	}

	copy(f.Data, mat.ToBytes())
	return nil
}
