package imageio

import (
	"image"
	"image/color"

	"go-image-loader/pkg/floatimage"
)

// channelsOf maps a decoded image to the number of samples per pixel it
// carries: 1 for gray or alpha-only, 3 for opaque colour, 4 for colour
// with alpha.
func channelsOf(img image.Image) int {
	switch m := img.(type) {
	case *floatimage.FloatImage:
		return m.Channels
	case *image.Gray, *image.Gray16, *image.Alpha, *image.Alpha16:
		return 1
	case *image.NRGBA, *image.NRGBA64, *image.NYCbCrA:
		return 4
	case *image.YCbCr, *image.CMYK:
		return 3
	}
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return 3
	}
	return 4
}

// minChannels is the fewest channels an image with colour model m can
// decode to.
func minChannels(m color.Model) int {
	switch m {
	case color.GrayModel, color.Gray16Model, color.AlphaModel, color.Alpha16Model:
		return 1
	}
	return 3
}

// convert writes the samples of img into dst, row-major with interleaved
// channels. 8-bit samples are scaled by 1/255, 16-bit by 1/65535 and alpha
// is un-premultiplied.
func convert(img image.Image, channels int, dst []float32) {
	b := img.Bounds()
	w := b.Dx()

	switch src := img.(type) {
	case *floatimage.FloatImage:
		n := w * channels
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			off := (y - b.Min.Y) * n
			copy(dst[off:off+n], src.Pix[i:i+n])
		}
		return
	case *image.Gray:
		k := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			for _, v := range src.Pix[i : i+w] {
				dst[k] = float32(v) / 0xff
				k++
			}
		}
		return
	case *image.Gray16:
		k := 0
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := src.PixOffset(b.Min.X, y)
			for x := 0; x < w; x++ {
				v := uint16(src.Pix[i+2*x])<<8 | uint16(src.Pix[i+2*x+1])
				dst[k] = float32(v) / 0xffff
				k++
			}
		}
		return
	case *image.NRGBA:
		if channels == 4 {
			k := 0
			for y := b.Min.Y; y < b.Max.Y; y++ {
				i := src.PixOffset(b.Min.X, y)
				for _, v := range src.Pix[i : i+4*w] {
					dst[k] = float32(v) / 0xff
					k++
				}
			}
			return
		}
	case *image.RGBA:
		// Opaque, so premultiplied and straight samples agree.
		if channels == 3 {
			k := 0
			for y := b.Min.Y; y < b.Max.Y; y++ {
				i := src.PixOffset(b.Min.X, y)
				for x := 0; x < w; x++ {
					p := src.Pix[i+4*x : i+4*x+3 : i+4*x+3]
					dst[k] = float32(p[0]) / 0xff
					dst[k+1] = float32(p[1]) / 0xff
					dst[k+2] = float32(p[2]) / 0xff
					k += 3
				}
			}
			return
		}
	}

	convertGeneric(img, channels, dst)
}

func convertGeneric(img image.Image, channels int, dst []float32) {
	b := img.Bounds()
	alphaOnly := img.ColorModel() == color.AlphaModel || img.ColorModel() == color.Alpha16Model

	k := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := img.At(x, y)
			switch {
			case channels == 1 && alphaOnly:
				dst[k] = float32(color.Alpha16Model.Convert(c).(color.Alpha16).A) / 0xffff
			case channels == 1:
				dst[k] = float32(color.Gray16Model.Convert(c).(color.Gray16).Y) / 0xffff
			case channels == 2:
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				g := color.Gray16Model.Convert(color.NRGBA64{n.R, n.G, n.B, 0xffff}).(color.Gray16)
				dst[k] = float32(g.Y) / 0xffff
				dst[k+1] = float32(n.A) / 0xffff
			default:
				n := color.NRGBA64Model.Convert(c).(color.NRGBA64)
				dst[k] = float32(n.R) / 0xffff
				dst[k+1] = float32(n.G) / 0xffff
				dst[k+2] = float32(n.B) / 0xffff
				if channels >= 4 {
					dst[k+3] = float32(n.A) / 0xffff
				}
			}
			k += channels
		}
	}
}
