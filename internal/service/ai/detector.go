package ai

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"eventcam/internal/detection"
	"eventcam/internal/frame"
	"eventcam/internal/logger"
	"eventcam/internal/service/capture"
)

// Supported network output layouts.
const (
	FormatSSD    = "ssd"
	FormatYOLOv8 = "yolov8"
)

const (
	// yoloInputSize is the square input of exported YOLOv8 models.
	yoloInputSize = 640
	// nmsThreshold is the IoU above which overlapping YOLO boxes are merged.
	nmsThreshold = 0.45
)

// DetectorService runs object detection with the OpenCV DNN module.
type DetectorService struct {
	mu         sync.Mutex
	net        gocv.Net
	format     string
	labels     detection.Labels
	modelPath  string
	configPath string
	logger     *logger.Logger
}

// DetectorOptions selects the model files.
type DetectorOptions struct {
	ModelPath  string
	ConfigPath string
	Format     string
	Labels     detection.Labels
}

// NewDetectorService loads the network and fails if it cannot be read.
func NewDetectorService(opts DetectorOptions, logger *logger.Logger) (*DetectorService, error) {
	s := &DetectorService{
		format:     opts.Format,
		labels:     opts.Labels,
		modelPath:  opts.ModelPath,
		configPath: opts.ConfigPath,
		logger:     logger,
	}
	if err := s.initializeNet(); err != nil {
		return nil, err
	}
	return s, nil
}

// initializeNet loads the network from the model (and config) files.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	var net gocv.Net
	switch s.format {
	case FormatSSD:
		if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
			return fmt.Errorf("config file not found: %s", s.configPath)
		}
		net = gocv.ReadNet(s.modelPath, s.configPath)
	case FormatYOLOv8:
		net = gocv.ReadNetFromONNX(s.modelPath)
	default:
		return fmt.Errorf("unknown model format %q", s.format)
	}

	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}
	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized (%s, %s)", s.format, s.modelPath)
	return nil
}

// Detect runs one forward pass. The network is not safe for concurrent use,
// so calls are serialized.
func (s *DetectorService) Detect(ctx context.Context, f *frame.Frame, threshold float64) ([]detection.Detection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := capture.ToMat(f)
	if err != nil {
		return nil, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.format == FormatSSD {
		return s.detectSSD(mat, threshold)
	}
	return s.detectYOLOv8(mat, threshold)
}

func (s *DetectorService) detectSSD(mat gocv.Mat, threshold float64) ([]detection.Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/127.5, image.Pt(300, 300), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}
	return detection.DecodeSSD(data, mat.Cols(), mat.Rows(), threshold, s.labels), nil
}

func (s *DetectorService) detectYOLOv8(mat gocv.Mat, threshold float64) ([]detection.Detection, error) {
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(yoloInputSize, yoloInputSize), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	defer output.Close()

	dims := output.Size()
	if len(dims) != 3 || dims[1] <= 4 {
		return nil, fmt.Errorf("unexpected yolov8 output shape %v", dims)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read network output: %w", err)
	}

	scaleX := float64(mat.Cols()) / yoloInputSize
	scaleY := float64(mat.Rows()) / yoloInputSize
	candidates, err := detection.DecodeYOLOv8(data, dims[1]-4, dims[2], scaleX, scaleY, threshold, s.labels)
	if err != nil {
		return nil, err
	}
	if len(candidates) < 2 {
		return candidates, nil
	}

	boxes := make([]image.Rectangle, len(candidates))
	scores := make([]float32, len(candidates))
	for i, c := range candidates {
		boxes[i] = c.Box
		scores[i] = float32(c.Confidence)
	}
	keep := gocv.NMSBoxes(boxes, scores, float32(threshold), nmsThreshold)

	results := make([]detection.Detection, 0, len(keep))
	for _, idx := range keep {
		results = append(results, candidates[idx])
	}
	return results, nil
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}
