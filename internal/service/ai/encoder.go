package ai

import (
	"fmt"

	"gocv.io/x/gocv"

	"eventcam/internal/frame"
	"eventcam/internal/service/capture"
)

// JPEGEncoder encodes frames with OpenCV's imencode.
type JPEGEncoder struct{}

func (JPEGEncoder) Encode(f *frame.Frame) ([]byte, error) {
	mat, err := capture.ToMat(f)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func (JPEGEncoder) Ext() string { return ".jpg" }

func (JPEGEncoder) ContentType() string { return "image/jpeg" }
