package frame

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
)

// ToImage converts a BGR24 frame to RGBA.
func ToImage(f *Frame) (*image.RGBA, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	src := f.Data
	dst := img.Pix
	for i, j := 0, 0; i < len(src); i, j = i+3, j+4 {
		dst[j] = src[i+2]
		dst[j+1] = src[i+1]
		dst[j+2] = src[i]
		dst[j+3] = 0xff
	}
	return img, nil
}

// FromImage converts any image to a BGR24 frame.
func FromImage(img image.Image) *Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}

	f := New(b.Dx(), b.Dy())
	for i, j := 0, 0; j < len(f.Data); i, j = i+4, j+3 {
		f.Data[j] = rgba.Pix[i+2]
		f.Data[j+1] = rgba.Pix[i+1]
		f.Data[j+2] = rgba.Pix[i]
	}
	return f
}

// Fill paints the whole frame with one color.
func Fill(f *Frame, c color.RGBA) {
	for i := 0; i+2 < len(f.Data); i += 3 {
		f.Data[i] = c.B
		f.Data[i+1] = c.G
		f.Data[i+2] = c.R
	}
}

// DrawRect draws an unfilled rectangle clipped to the frame.
func DrawRect(f *Frame, r image.Rectangle, c color.RGBA, thickness int) error {
	if err := f.Validate(); err != nil {
		return fmt.Errorf("failed to draw rectangle: %w", err)
	}
	if thickness < 1 {
		thickness = 1
	}
	bounds := image.Rect(0, 0, f.Width, f.Height)
	edges := []image.Rectangle{
		image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+thickness),
		image.Rect(r.Min.X, r.Max.Y-thickness, r.Max.X, r.Max.Y),
		image.Rect(r.Min.X, r.Min.Y, r.Min.X+thickness, r.Max.Y),
		image.Rect(r.Max.X-thickness, r.Min.Y, r.Max.X, r.Max.Y),
	}
	for _, e := range edges {
		e = e.Intersect(bounds)
		for y := e.Min.Y; y < e.Max.Y; y++ {
			row := y * f.Width * 3
			for x := e.Min.X; x < e.Max.X; x++ {
				p := row + x*3
				f.Data[p] = c.B
				f.Data[p+1] = c.G
				f.Data[p+2] = c.R
			}
		}
	}
	return nil
}
