package capture

import (
	"fmt"

	"gocv.io/x/gocv"

	"eventcam/internal/frame"
)

// ToMat copies a BGR24 frame into a new Mat. The caller closes it.
func ToMat(f *frame.Frame) (gocv.Mat, error) {
	if err := f.Validate(); err != nil {
		return gocv.NewMat(), err
	}
	mat, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Data)
	if err != nil {
		return gocv.NewMat(), fmt.Errorf("failed to create mat: %w", err)
	}
	return mat, nil
}

// FromMat copies an 8-bit, 3 channel Mat into a frame.
func FromMat(mat gocv.Mat) (*frame.Frame, error) {
	if mat.Empty() {
		return nil, fmt.Errorf("mat is empty")
	}
	if mat.Type() != gocv.MatTypeCV8UC3 {
		return nil, fmt.Errorf("unsupported mat type %v", mat.Type())
	}
	f := &frame.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Format: frame.BGR24,
		Data:   mat.ToBytes(),
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}
