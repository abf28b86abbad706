package monitor

import (
	"image/color"

	"eventcam/internal/detection"
	"eventcam/internal/frame"
)

// Annotator draws detections onto a frame it owns.
type Annotator interface {
	Annotate(f *frame.Frame, dets []detection.Detection) error
}

// BoxAnnotator outlines each detection.
type BoxAnnotator struct {
	Color     color.RGBA
	Thickness int
}

func (a BoxAnnotator) Annotate(f *frame.Frame, dets []detection.Detection) error {
	c := a.Color
	if c == (color.RGBA{}) {
		c = color.RGBA{R: 255, A: 255}
	}
	for _, d := range dets {
		if err := frame.DrawRect(f, d.Box, c, a.Thickness); err != nil {
			return err
		}
	}
	return nil
}
