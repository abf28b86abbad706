// Package capture reads frames from a camera, stream or video file with
// OpenCV.
package capture

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	"gocv.io/x/gocv"

	"eventcam/internal/frame"
	"eventcam/internal/logger"
)

// DefaultFPS is assumed when the device does not report a frame rate.
const DefaultFPS = 30.0

// Camera is a frame.Source backed by gocv.VideoCapture.
type Camera struct {
	source string
	isFile bool
	fps    float64
	width  int
	height int

	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	closed bool
}

// Open opens source: a device index such as "0", a stream URL, or a file.
// Reads from a file end with frame.ErrEndOfStream; empty reads from a
// device or stream are transient.
func Open(source string, logger *logger.Logger) (*Camera, error) {
	var device interface{} = source
	if idx, err := strconv.Atoi(source); err == nil {
		device = idx
	}

	vc, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("failed to open video capture %s: %w", source, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("video capture %s is not opened", source)
	}

	c := &Camera{
		source: source,
		cap:    vc,
		mat:    gocv.NewMat(),
		fps:    vc.Get(gocv.VideoCaptureFPS),
		width:  int(vc.Get(gocv.VideoCaptureFrameWidth)),
		height: int(vc.Get(gocv.VideoCaptureFrameHeight)),
	}
	if _, err := os.Stat(source); err == nil {
		c.isFile = true
	}
	if c.fps <= 0 {
		logger.Warning("Camera %s reports no frame rate, assuming %.0f", source, DefaultFPS)
		c.fps = DefaultFPS
	}
	logger.Info("📷 Camera %s opened: %dx%d @ %.1f fps", source, c.width, c.height, c.fps)
	return c, nil
}

func (c *Camera) Next(ctx context.Context) (*frame.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, &frame.ReadError{Err: errors.New("camera closed")}
	}

	if ok := c.cap.Read(&c.mat); !ok || c.mat.Empty() {
		if c.isFile {
			return nil, frame.ErrEndOfStream
		}
		return nil, &frame.ReadError{Transient: true, Err: fmt.Errorf("empty read from %s", c.source)}
	}

	f, err := FromMat(c.mat)
	if err != nil {
		return nil, &frame.ReadError{Err: err}
	}
	if c.width == 0 || c.height == 0 {
		c.width, c.height = f.Width, f.Height
	}
	return f, nil
}

func (c *Camera) FPS() float64 { return c.fps }

func (c *Camera) Size() (int, int) { return c.width, c.height }

// Close releases the device.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.cap.Close()
}
