// Package video writes clips with OpenCV's VideoWriter.
package video

import (
	"fmt"

	"gocv.io/x/gocv"

	"eventcam/internal/frame"
	"eventcam/internal/recorder"
	"eventcam/internal/service/capture"
)

// Sink creates clips with a fourcc codec, "mp4v" in an .mp4 container by default.
type Sink struct {
	Codec     string
	Extension string
}

// NewMP4Sink returns the default mp4v sink.
func NewMP4Sink() Sink {
	return Sink{Codec: "mp4v", Extension: ".mp4"}
}

func (s Sink) Ext() string { return s.Extension }

func (s Sink) Create(path string, fps float64, width, height int) (recorder.ClipWriter, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid clip size %dx%d", width, height)
	}
	vw, err := gocv.VideoWriterFile(path, s.Codec, fps, width, height, true)
	if err != nil {
		return nil, fmt.Errorf("failed to open video writer: %w", err)
	}
	if !vw.IsOpened() {
		vw.Close()
		return nil, fmt.Errorf("video writer for %s is not opened", path)
	}
	return &writer{vw: vw}, nil
}

type writer struct {
	vw *gocv.VideoWriter
}

func (w *writer) Write(f *frame.Frame) error {
	mat, err := capture.ToMat(f)
	if err != nil {
		return err
	}
	defer mat.Close()
	return w.vw.Write(mat)
}

func (w *writer) Close() error {
	return w.vw.Close()
}
