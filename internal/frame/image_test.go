package frame

import (
	"image"
	"image/color"
	"testing"
)

func TestToImage_SwapsChannels(t *testing.T) {
	f := New(2, 1)
	Fill(f, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	if f.Data[0] != 30 || f.Data[2] != 10 {
		t.Fatalf("Expected BGR layout, got %v", f.Data[:3])
	}

	img, err := ToImage(f)
	if err != nil {
		t.Fatalf("ToImage failed: %v", err)
	}
	got := img.RGBAAt(1, 0)
	if got != (color.RGBA{R: 10, G: 20, B: 30, A: 255}) {
		t.Errorf("Expected 10,20,30 got %v", got)
	}
}

func TestFromImage_OffsetBounds(t *testing.T) {
	src := image.NewRGBA(image.Rect(5, 5, 8, 7))
	src.Set(5, 5, color.RGBA{R: 1, G: 2, B: 3, A: 255})

	f := FromImage(src)
	if f.Width != 3 || f.Height != 2 {
		t.Fatalf("Expected 3x2, got %dx%d", f.Width, f.Height)
	}
	if f.Data[0] != 3 || f.Data[1] != 2 || f.Data[2] != 1 {
		t.Errorf("Expected first pixel 3,2,1 got %v", f.Data[:3])
	}
}

func TestToImage_RejectsShortData(t *testing.T) {
	f := &Frame{Width: 4, Height: 4, Data: make([]byte, 10)}
	if _, err := ToImage(f); err == nil {
		t.Error("Expected error for truncated frame data")
	}
}

func TestDrawRect_ClipsToFrame(t *testing.T) {
	f := New(10, 10)
	red := color.RGBA{R: 255, A: 255}

	if err := DrawRect(f, image.Rect(5, 5, 20, 20), red, 2); err != nil {
		t.Fatalf("DrawRect failed: %v", err)
	}
	p := (5*10 + 5) * 3
	if f.Data[p+2] != 255 {
		t.Error("Expected top-left corner to be painted")
	}
	inner := (8*10 + 8) * 3
	if f.Data[inner+2] != 0 {
		t.Error("Rectangle interior should stay untouched")
	}
}

func TestClone_IsDeep(t *testing.T) {
	f := New(2, 2)
	c := f.Clone()
	c.Data[0] = 99
	if f.Data[0] == 99 {
		t.Error("Clone shares pixel data with the original")
	}
}
