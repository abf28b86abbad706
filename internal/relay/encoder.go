package relay

import (
	"bytes"
	"fmt"
	"image/jpeg"

	"eventcam/internal/frame"
)

// Encoder turns a frame into a transport-ready image.
type Encoder interface {
	Encode(f *frame.Frame) ([]byte, error)
	// Ext is the file extension including the dot, e.g. ".jpg".
	Ext() string
	ContentType() string
}

// JPEGEncoder encodes frames with image/jpeg.
type JPEGEncoder struct {
	Quality int
}

func (e JPEGEncoder) Encode(f *frame.Frame) ([]byte, error) {
	img, err := frame.ToImage(f)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	q := e.Quality
	if q <= 0 {
		q = jpeg.DefaultQuality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

func (JPEGEncoder) Ext() string { return ".jpg" }

func (JPEGEncoder) ContentType() string { return "image/jpeg" }
