package detection

import (
	"fmt"
	"image"
)

// SSDStride is the number of values per SSD detection row:
// image id, class id, score, x1, y1, x2, y2.
const SSDStride = 7

// DecodeSSD reads a TensorFlow SSD output blob. Coordinates are normalized
// to [0,1] and scaled to the frame size.
func DecodeSSD(out []float32, width, height int, threshold float64, labels Labels) []Detection {
	var dets []Detection
	for i := 0; i+SSDStride <= len(out); i += SSDStride {
		score := float64(out[i+2])
		if score <= threshold {
			continue
		}
		classID := int(out[i+1])
		box := image.Rect(
			int(out[i+3]*float32(width)),
			int(out[i+4]*float32(height)),
			int(out[i+5]*float32(width)),
			int(out[i+6]*float32(height)),
		).Intersect(image.Rect(0, 0, width, height))
		dets = append(dets, Detection{
			ClassID:    classID,
			Label:      labels.Name(classID),
			Confidence: score,
			Box:        box,
		})
	}
	return dets
}

// DecodeYOLOv8 reads a YOLOv8 output blob of shape [1, 4+classes, boxes].
// Each column holds cx, cy, w, h in network input pixels followed by one
// score per class. scaleX and scaleY map input pixels to frame pixels.
// Overlapping boxes are not suppressed here.
func DecodeYOLOv8(out []float32, classes, boxes int, scaleX, scaleY, threshold float64, labels Labels) ([]Detection, error) {
	if classes <= 0 || boxes <= 0 {
		return nil, fmt.Errorf("invalid yolov8 output shape: %d classes, %d boxes", classes, boxes)
	}
	if want := (4 + classes) * boxes; len(out) < want {
		return nil, fmt.Errorf("yolov8 output has %d values, expected %d", len(out), want)
	}

	var dets []Detection
	for i := 0; i < boxes; i++ {
		best, bestScore := -1, float32(0)
		for c := 0; c < classes; c++ {
			if s := out[(4+c)*boxes+i]; s > bestScore {
				best, bestScore = c, s
			}
		}
		if best < 0 || float64(bestScore) <= threshold {
			continue
		}

		cx := float64(out[i])
		cy := float64(out[boxes+i])
		w := float64(out[2*boxes+i])
		h := float64(out[3*boxes+i])
		dets = append(dets, Detection{
			ClassID:    best,
			Label:      labels.Name(best),
			Confidence: float64(bestScore),
			Box: image.Rect(
				int((cx-w/2)*scaleX),
				int((cy-h/2)*scaleY),
				int((cx+w/2)*scaleX),
				int((cy+h/2)*scaleY),
			),
		})
	}
	return dets, nil
}
