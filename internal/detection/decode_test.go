package detection

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDecodeSSD(t *testing.T) {
	out := []float32{
		0, 18, 0.9, 0.1, 0.2, 0.5, 0.6,
		0, 1, 0.3, 0, 0, 1, 1,
		0, 17, 0.7, 0.9, 0.9, 1.2, 1.1,
	}
	got := DecodeSSD(out, 100, 50, 0.5, Labels{1: "person", 17: "cat", 18: "dog"})

	want := []Detection{
		{ClassID: 18, Label: "dog", Confidence: float64(float32(0.9)), Box: image.Rect(10, 10, 50, 30)},
		{ClassID: 17, Label: "cat", Confidence: float64(float32(0.7)), Box: image.Rect(90, 45, 100, 50)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detections mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYOLOv8(t *testing.T) {
	// 2 classes, 3 boxes, column-major per attribute row.
	const boxes = 3
	out := []float32{
		// cx
		100, 200, 300,
		// cy
		50, 60, 70,
		// w
		20, 40, 60,
		// h
		10, 20, 30,
		// class 0 scores
		0.1, 0.85, 0.2,
		// class 1 scores
		0.95, 0.1, 0.3,
	}
	got, err := DecodeYOLOv8(out, 2, boxes, 2, 0.5, 0.8, Labels{"Monkey", "Bird"})
	if err != nil {
		t.Fatalf("DecodeYOLOv8 failed: %v", err)
	}

	want := []Detection{
		{ClassID: 1, Label: "Bird", Confidence: float64(float32(0.95)), Box: image.Rect(180, 22, 220, 27)},
		{ClassID: 0, Label: "Monkey", Confidence: float64(float32(0.85)), Box: image.Rect(360, 25, 440, 35)},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Detections mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeYOLOv8_ShortOutput(t *testing.T) {
	if _, err := DecodeYOLOv8(make([]float32, 10), 2, 3, 1, 1, 0.5, nil); err == nil {
		t.Error("Expected error for truncated output")
	}
	if _, err := DecodeYOLOv8(nil, 0, 3, 1, 1, 0.5, nil); err == nil {
		t.Error("Expected error for zero classes")
	}
}

func TestLoadLabels(t *testing.T) {
	path := filepath.Join(t.TempDir(), "labels.txt")
	os.WriteFile(path, []byte("Monkey\n Bird \n\nCat\n"), 0644)

	labels, err := LoadLabels(path)
	if err != nil {
		t.Fatalf("LoadLabels failed: %v", err)
	}
	tests := []struct {
		id   int
		want string
	}{
		{0, "Monkey"},
		{1, "Bird"},
		{2, "class_2"},
		{3, "Cat"},
		{9, "class_9"},
		{-1, "class_-1"},
	}
	for _, tt := range tests {
		if got := labels.Name(tt.id); got != tt.want {
			t.Errorf("Name(%d) = %q, expected %q", tt.id, got, tt.want)
		}
	}

	if l, err := LoadLabels(""); err != nil || l != nil {
		t.Errorf("Empty path should yield no labels, got %v %v", l, err)
	}
}
