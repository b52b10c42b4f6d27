package loader

import (
	"sync/atomic"

	"go-image-loader/internal/imageio"
	"go-image-loader/pkg/floatimage"
)

// DecodedImage owns a decoded pixel buffer. Pixels holds
// Width*Height*Channels samples, rows top to bottom, pixels left to right,
// channels interleaved in source order.
//
// The image belongs to the caller that received it from Load and must be
// released exactly once. After Release, Pixels is nil.
type DecodedImage struct {
	Width    int
	Height   int
	Channels int
	Pixels   []float32

	// Format and MIME describe the source as reported by the backend.
	Format string
	MIME   string

	owner    *Loader
	released atomic.Bool
}

// Release returns the pixel buffer to its loader. Calling Release on an
// already released image does nothing.
func (img *DecodedImage) Release() {
	if img == nil || !img.released.CompareAndSwap(false, true) {
		return
	}
	pixels := img.Pixels
	img.Pixels = nil
	if img.owner != nil {
		img.owner.pool.put(pixels)
		img.owner.releases.Add(1)
	}
}

// Released reports whether Release has been called.
func (img *DecodedImage) Released() bool {
	return img.released.Load()
}

// Spec returns the image dimensions in the form the writers expect.
func (img *DecodedImage) Spec() imageio.Spec {
	return imageio.Spec{
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Format:   img.Format,
		MIME:     img.MIME,
	}
}

// Sample returns channel c of the pixel at (x, y). Coordinates outside the
// image and a released image read as 0, like image.Image.At.
func (img *DecodedImage) Sample(x, y, c int) float32 {
	if img.Released() || x < 0 || y < 0 || c < 0 || x >= img.Width || y >= img.Height || c >= img.Channels {
		return 0
	}
	return img.Pixels[(y*img.Width+x)*img.Channels+c]
}

// FloatImage wraps the pixel buffer as an image.Image without copying. The
// result must not be used after Release.
func (img *DecodedImage) FloatImage() *floatimage.FloatImage {
	return floatimage.FromSamples(img.Width, img.Height, img.Channels, img.Pixels)
}
