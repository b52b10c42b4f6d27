package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	_ "go-image-loader/internal/codec/pfm"
	apperrors "go-image-loader/internal/errors"
)

var errInputClosed = errors.New("imageio: input is closed")

const pfmMIME = "image/x-portable-floatmap"

type goOpener struct {
	maxSamples int
}

// NewGoOpener returns the backend that decodes through the image package
// registry: PNG, JPEG, GIF, BMP, TIFF, WebP and PFM.
func NewGoOpener() Opener {
	return goOpener{}
}

func (goOpener) WithMaxSamples(n int) Opener {
	return goOpener{maxSamples: n}
}

func (o goOpener) Open(path string) (Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("image file does not exist", err)
		}
		return nil, apperrors.NewInternalError("cannot stat image file", err)
	}
	if info.IsDir() {
		return nil, apperrors.NewValidationError("path is a directory", nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.NewInternalError("cannot read image file", err)
	}
	return o.openBytes(data, path)
}

func (o goOpener) OpenBytes(data []byte, name string) (Input, error) {
	return o.openBytes(data, name)
}

// openBytes reads the header first so the sample limit is enforced before
// the decoder allocates the raster.
func (o goOpener) openBytes(data []byte, name string) (Input, error) {
	mime := mimetype.Detect(data).String()

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, apperrors.NewUnsupportedFormatError(
				fmt.Sprintf("no decoder recognises %s (detected %s)", name, mime), err,
			).WithDetails(mime)
		}
		return nil, apperrors.NewDecodeError(fmt.Sprintf("cannot read %s header of %s", format, name), err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("image %s has no pixels", name), nil)
	}
	if err := CheckSamples(cfg.Width, cfg.Height, minChannels(cfg.ColorModel), o.maxSamples); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("cannot decode %s image %s", format, name), err)
	}

	b := img.Bounds()
	if b.Empty() {
		return nil, apperrors.NewDecodeError(fmt.Sprintf("image %s has no pixels", name), nil)
	}

	if format == "pfm" {
		mime = pfmMIME
	}

	return &goInput{
		img: img,
		spec: Spec{
			Width:    b.Dx(),
			Height:   b.Dy(),
			Channels: channelsOf(img),
			Format:   format,
			MIME:     mime,
		},
	}, nil
}

type goInput struct {
	spec Spec
	img  image.Image
}

func (in *goInput) Spec() Spec { return in.spec }

func (in *goInput) ReadImage(dst []float32) error {
	if in.img == nil {
		return errInputClosed
	}
	if want := in.spec.SampleCount(); len(dst) != want {
		return fmt.Errorf("imageio: buffer holds %d samples, image needs %d", len(dst), want)
	}
	convert(in.img, in.spec.Channels, dst)
	return nil
}

func (in *goInput) Close() error {
	in.img = nil
	return nil
}
