package imageio

import (
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"

	"go-image-loader/internal/codec/pfm"
	apperrors "go-image-loader/internal/errors"
	"go-image-loader/pkg/floatimage"
)

const jpegQuality = 95

// IsHDR reports whether the file extension names a high dynamic range
// format, whose samples are written unclamped.
func IsHDR(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".hdr", ".exr", ".pfm", ".dpx":
		return true
	default:
		return false
	}
}

// WriteFile encodes pixels laid out as described by spec into path. The
// encoder is chosen from the file extension.
func WriteFile(path string, spec Spec, pixels []float32) error {
	if spec.Width <= 0 || spec.Height <= 0 || spec.Channels <= 0 {
		return apperrors.NewValidationError(fmt.Sprintf("invalid image spec %dx%dx%d", spec.Width, spec.Height, spec.Channels), nil)
	}
	if len(pixels) != spec.SampleCount() {
		return apperrors.NewValidationError(
			fmt.Sprintf("pixel buffer holds %d samples, spec needs %d", len(pixels), spec.SampleCount()), nil)
	}

	encode, err := encoderFor(path, spec.Channels)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return apperrors.NewInternalError("cannot create output file", err)
	}

	src := floatimage.FromSamples(spec.Width, spec.Height, spec.Channels, pixels)
	if err := encode(f, src); err != nil {
		f.Close()
		os.Remove(path)
		return apperrors.NewInternalError(fmt.Sprintf("cannot encode %s", filepath.Base(path)), err)
	}
	if err := f.Close(); err != nil {
		return apperrors.NewInternalError("cannot close output file", err)
	}
	return nil
}

type encodeFunc func(io.Writer, *floatimage.FloatImage) error

func encoderFor(path string, channels int) (encodeFunc, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".png":
		return func(w io.Writer, img *floatimage.FloatImage) error {
			return png.Encode(w, to16Bit(img))
		}, nil
	case ".tif", ".tiff":
		return func(w io.Writer, img *floatimage.FloatImage) error {
			return tiff.Encode(w, to16Bit(img), &tiff.Options{Compression: tiff.Deflate})
		}, nil
	case ".jpg", ".jpeg":
		return func(w io.Writer, img *floatimage.FloatImage) error {
			return jpeg.Encode(w, to8Bit(img), &jpeg.Options{Quality: jpegQuality})
		}, nil
	case ".bmp":
		return func(w io.Writer, img *floatimage.FloatImage) error {
			return bmp.Encode(w, to8Bit(img))
		}, nil
	case ".pfm":
		if channels != 1 && channels != 3 {
			return nil, apperrors.NewUnsupportedFormatError(
				fmt.Sprintf("pfm stores 1 or 3 channels, image has %d", channels), nil)
		}
		return pfm.Encode, nil
	}

	if IsHDR(path) {
		return nil, apperrors.NewUnsupportedFormatError(fmt.Sprintf("no encoder for HDR format %s", ext), nil)
	}
	return nil, apperrors.NewUnsupportedFormatError(fmt.Sprintf("no encoder for extension %q", ext), nil)
}

// to16Bit quantises to Gray16 for single channel images, to RGBA64 for
// opaque colour and to NRGBA64 when alpha is present.
func to16Bit(src *floatimage.FloatImage) image.Image {
	b := src.Bounds()
	switch src.Channels {
	case 1:
		dst := image.NewGray16(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetGray16(x, y, color.Gray16{Y: quantize16(src.FloatAt(x, y)[0])})
			}
		}
		return dst
	case 3:
		dst := image.NewRGBA64(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				s := src.FloatAt(x, y)
				dst.SetRGBA64(x, y, color.RGBA64{quantize16(s[0]), quantize16(s[1]), quantize16(s[2]), 0xffff})
			}
		}
		return dst
	}

	rgba := src.ToNRGBA()
	dst := image.NewNRGBA64(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s := rgba.FloatAt(x, y)
			dst.SetNRGBA64(x, y, color.NRGBA64{quantize16(s[0]), quantize16(s[1]), quantize16(s[2]), quantize16(s[3])})
		}
	}
	return dst
}

func to8Bit(src *floatimage.FloatImage) image.Image {
	b := src.Bounds()
	if src.Channels == 1 {
		dst := image.NewGray(b)
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				dst.SetGray(x, y, color.Gray{Y: quantize8(src.FloatAt(x, y)[0])})
			}
		}
		return dst
	}

	rgba := src.ToNRGBA()
	dst := image.NewNRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			s := rgba.FloatAt(x, y)
			dst.SetNRGBA(x, y, color.NRGBA{quantize8(s[0]), quantize8(s[1]), quantize8(s[2]), quantize8(s[3])})
		}
	}
	return dst
}

func quantize8(v float32) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xff
	}
	return uint8(v*0xff + 0.5)
}

func quantize16(v float32) uint16 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 0xffff
	}
	return uint16(v*0xffff + 0.5)
}
