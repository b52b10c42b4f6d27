// Package loader reads image files into flat float32 pixel buffers.
//
// Load opens a file through an imageio backend, sizes a buffer from the
// reported spec, decodes every pixel into it and closes the backend input.
// The result is either a fully populated DecodedImage or an error; a failed
// pixel read never yields a partially filled image.
package loader

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/imageio"
	"go-image-loader/internal/logger"
)

// Loader decodes images with a single imageio backend. It is safe for
// concurrent use; each Load call is independent.
type Loader struct {
	opener     imageio.Opener
	maxSamples int
	pool       bufferPool

	loads    atomic.Int64
	failures atomic.Int64
	releases atomic.Int64
}

// Option configures a Loader.
type Option func(*Loader)

// WithMaxSamples rejects images whose Width*Height*Channels exceeds n.
// Backends implementing imageio.LimitedOpener check the limit from the
// image header, before decoding. Zero disables the limit.
func WithMaxSamples(n int) Option {
	return func(l *Loader) {
		l.maxSamples = n
	}
}

// Stats is a snapshot of a Loader's counters.
type Stats struct {
	Loads              int64 `json:"loads"`
	Failures           int64 `json:"failures"`
	Releases           int64 `json:"releases"`
	Outstanding        int64 `json:"outstanding"`
	OutstandingSamples int64 `json:"outstanding_samples"`
	BuffersAllocated   int64 `json:"buffers_allocated"`
	BuffersReused      int64 `json:"buffers_reused"`
}

// New creates a Loader that opens images with opener.
func New(opener imageio.Opener, opts ...Option) *Loader {
	l := &Loader{opener: opener}
	for _, opt := range opts {
		opt(l)
	}
	if lo, ok := opener.(imageio.LimitedOpener); ok && l.maxSamples > 0 {
		l.opener = lo.WithMaxSamples(l.maxSamples)
	}
	return l
}

var defaultLoader = New(imageio.NewGoOpener())

// Default returns the package level Loader used by Load and TryLoad.
func Default() *Loader { return defaultLoader }

// Load decodes the image at path with the default Loader.
func Load(path string) (*DecodedImage, error) { return defaultLoader.Load(path) }

// TryLoad is Load without the error: it returns nil on any failure.
func TryLoad(path string) *DecodedImage { return defaultLoader.TryLoad(path) }

// Load opens path, decodes all pixels as float32 and returns an owned
// image. Errors are *apperrors.AppError values of type not_found,
// unsupported_format, decode, validation or internal.
func (l *Loader) Load(path string) (*DecodedImage, error) {
	if strings.TrimSpace(path) == "" {
		l.failures.Add(1)
		return nil, apperrors.NewValidationError("image path is empty", nil)
	}

	in, err := l.opener.Open(path)
	if err != nil {
		return nil, l.fail(path, err)
	}
	return l.read(in, path)
}

// LoadBytes decodes an image already held in memory. name is used for
// format hints and error messages.
func (l *Loader) LoadBytes(data []byte, name string) (*DecodedImage, error) {
	if len(data) == 0 {
		l.failures.Add(1)
		return nil, apperrors.NewValidationError("image data is empty", nil)
	}

	in, err := l.opener.OpenBytes(data, name)
	if err != nil {
		return nil, l.fail(name, err)
	}
	return l.read(in, name)
}

// TryLoad returns nil instead of an error.
func (l *Loader) TryLoad(path string) *DecodedImage {
	img, err := l.Load(path)
	if err != nil {
		return nil
	}
	return img
}

// Stats returns the current counters.
func (l *Loader) Stats() Stats {
	return Stats{
		Loads:              l.loads.Load(),
		Failures:           l.failures.Load(),
		Releases:           l.releases.Load(),
		Outstanding:        l.pool.outstanding.Load(),
		OutstandingSamples: l.pool.outstandingSamples.Load(),
		BuffersAllocated:   l.pool.allocated.Load(),
		BuffersReused:      l.pool.reused.Load(),
	}
}

func (l *Loader) read(in imageio.Input, name string) (*DecodedImage, error) {
	defer func() {
		if err := in.Close(); err != nil {
			logger.WithError(err).WithField("image", name).Warn("Failed to close image input")
		}
	}()

	spec := in.Spec()
	if spec.Width <= 0 || spec.Height <= 0 || spec.Channels <= 0 {
		return nil, l.fail(name, apperrors.NewDecodeError(
			fmt.Sprintf("invalid image size %dx%dx%d", spec.Width, spec.Height, spec.Channels), nil))
	}
	n := spec.SampleCount()
	if l.maxSamples > 0 && n > l.maxSamples {
		return nil, l.fail(name, apperrors.NewValidationError(
			fmt.Sprintf("image has %d samples, limit is %d", n, l.maxSamples), nil))
	}

	buf := l.pool.get(n)
	if err := in.ReadImage(buf); err != nil {
		l.pool.put(buf)
		return nil, l.fail(name, apperrors.NewDecodeError(
			fmt.Sprintf("cannot read pixel data of %s", filepath.Base(name)), err))
	}

	l.loads.Add(1)
	logger.WithFields(logrus.Fields{
		"image":    name,
		"format":   spec.Format,
		"width":    spec.Width,
		"height":   spec.Height,
		"channels": spec.Channels,
	}).Debug("Image decoded")

	return &DecodedImage{
		Width:    spec.Width,
		Height:   spec.Height,
		Channels: spec.Channels,
		Pixels:   buf,
		Format:   spec.Format,
		MIME:     spec.MIME,
		owner:    l,
	}, nil
}

func (l *Loader) fail(name string, err error) error {
	l.failures.Add(1)
	logger.WithError(err).WithFields(logrus.Fields{
		"image":      name,
		"error_type": apperrors.TypeOf(err),
	}).Debug("Image load failed")
	return err
}

// Save writes img to path, choosing the encoder from the file extension.
func Save(path string, img *DecodedImage) error {
	if img == nil || img.Released() {
		return apperrors.NewValidationError("image has been released", nil)
	}
	return imageio.WriteFile(path, img.Spec(), img.Pixels)
}
