package floatimage

import (
	"image"
	"image/color"
)

// FloatImage is an in-memory image whose samples are 32-bit floats.
// Pix holds Channels interleaved samples per pixel, row-major.
type FloatImage struct {
	Pix      []float32
	Stride   int
	Channels int
	Rect     image.Rectangle
}

// New returns a zeroed FloatImage with the given bounds and channel count.
func New(r image.Rectangle, channels int) *FloatImage {
	if channels <= 0 {
		channels = 1
	}
	w, h := r.Dx(), r.Dy()
	return &FloatImage{
		Pix:      make([]float32, w*h*channels),
		Stride:   w * channels,
		Channels: channels,
		Rect:     r,
	}
}

// FromSamples wraps an existing sample buffer without copying.
func FromSamples(width, height, channels int, pix []float32) *FloatImage {
	return &FloatImage{
		Pix:      pix,
		Stride:   width * channels,
		Channels: channels,
		Rect:     image.Rect(0, 0, width, height),
	}
}

func (p *FloatImage) ColorModel() color.Model { return color.NRGBA64Model }

func (p *FloatImage) Bounds() image.Rectangle { return p.Rect }

// PixOffset returns the index of the first sample of the pixel at (x, y).
func (p *FloatImage) PixOffset(x, y int) int {
	return (y-p.Rect.Min.Y)*p.Stride + (x-p.Rect.Min.X)*p.Channels
}

// FloatAt returns the raw samples at (x, y). The slice aliases Pix.
func (p *FloatImage) FloatAt(x, y int) []float32 {
	if !(image.Point{x, y}.In(p.Rect)) {
		return nil
	}
	i := p.PixOffset(x, y)
	return p.Pix[i : i+p.Channels : i+p.Channels]
}

// SetFloat copies samples into the pixel at (x, y).
func (p *FloatImage) SetFloat(x, y int, samples ...float32) {
	if !(image.Point{x, y}.In(p.Rect)) {
		return
	}
	i := p.PixOffset(x, y)
	copy(p.Pix[i:i+p.Channels], samples)
}

func (p *FloatImage) At(x, y int) color.Color {
	s := p.FloatAt(x, y)
	if s == nil {
		return color.NRGBA64{}
	}
	switch p.Channels {
	case 1:
		v := to16(s[0])
		return color.NRGBA64{v, v, v, 0xffff}
	case 2:
		v := to16(s[0])
		return color.NRGBA64{v, v, v, to16(s[1])}
	case 3:
		return color.NRGBA64{to16(s[0]), to16(s[1]), to16(s[2]), 0xffff}
	default:
		return color.NRGBA64{to16(s[0]), to16(s[1]), to16(s[2]), to16(s[3])}
	}
}

// Opaque reports whether the image has no alpha channel or every alpha
// sample is at least 1.
func (p *FloatImage) Opaque() bool {
	alpha := -1
	switch p.Channels {
	case 2:
		alpha = 1
	case 4:
		alpha = 3
	}
	if alpha < 0 {
		return true
	}
	for i := alpha; i < len(p.Pix); i += p.Channels {
		if p.Pix[i] < 1 {
			return false
		}
	}
	return true
}

// ToNRGBA expands the image to four channels. Gray is replicated into RGB
// and missing alpha is set to 1. A four channel image is returned as is.
func (p *FloatImage) ToNRGBA() *FloatImage {
	if p.Channels == 4 {
		return p
	}
	out := New(p.Rect, 4)
	for y := p.Rect.Min.Y; y < p.Rect.Max.Y; y++ {
		for x := p.Rect.Min.X; x < p.Rect.Max.X; x++ {
			s := p.FloatAt(x, y)
			var r, g, b, a float32 = 0, 0, 0, 1
			switch p.Channels {
			case 1:
				r, g, b = s[0], s[0], s[0]
			case 2:
				r, g, b, a = s[0], s[0], s[0], s[1]
			default:
				r, g, b = s[0], s[1], s[2]
			}
			out.SetFloat(x, y, r, g, b, a)
		}
	}
	return out
}

func to16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
