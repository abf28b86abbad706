package recorder

import (
	"bufio"
	"fmt"
	"os"

	"eventcam/internal/frame"
	"eventcam/internal/relay"
)

// MJPEGSink writes clips as a raw Motion-JPEG stream: JPEG images back to
// back, playable with ffplay -f mjpeg.
type MJPEGSink struct {
	Encoder relay.Encoder
}

func (s MJPEGSink) Ext() string { return ".mjpeg" }

func (s MJPEGSink) Create(path string, fps float64, width, height int) (ClipWriter, error) {
	enc := s.Encoder
	if enc == nil {
		enc = relay.JPEGEncoder{Quality: 85}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create clip file: %w", err)
	}
	return &mjpegWriter{file: file, buf: bufio.NewWriter(file), enc: enc, width: width, height: height}, nil
}

type mjpegWriter struct {
	file   *os.File
	buf    *bufio.Writer
	enc    relay.Encoder
	width  int
	height int
}

func (w *mjpegWriter) Write(f *frame.Frame) error {
	if f.Width != w.width || f.Height != w.height {
		return fmt.Errorf("frame size %dx%d does not match clip %dx%d", f.Width, f.Height, w.width, w.height)
	}
	img, err := w.enc.Encode(f)
	if err != nil {
		return err
	}
	_, err = w.buf.Write(img)
	return err
}

func (w *mjpegWriter) Close() error {
	flushErr := w.buf.Flush()
	closeErr := w.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush clip: %w", flushErr)
	}
	return closeErr
}
