// Package preview shows the annotated stream in a local window.
package preview

import (
	"gocv.io/x/gocv"

	"eventcam/internal/frame"
	"eventcam/internal/logger"
	"eventcam/internal/service/capture"
)

// Window is an OpenCV HighGUI window. Pressing q or Esc asks to quit.
type Window struct {
	win    *gocv.Window
	logger *logger.Logger
}

// NewWindow opens a window titled name.
func NewWindow(name string, logger *logger.Logger) *Window {
	return &Window{win: gocv.NewWindow(name), logger: logger}
}

// Show displays f and polls the keyboard for 1ms.
func (w *Window) Show(f *frame.Frame) bool {
	mat, err := capture.ToMat(f)
	if err != nil {
		w.logger.Warning("Failed to show frame %d: %v", f.Seq, err)
		return false
	}
	defer mat.Close()

	w.win.IMShow(mat)
	switch w.win.WaitKey(1) {
	case 'q', 'Q', 27:
		return true
	}
	return false
}

// Close destroys the window.
func (w *Window) Close() error {
	return w.win.Close()
}
