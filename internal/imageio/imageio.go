// Package imageio is the boundary to the image decoding libraries. A
// backend opens an image by path or from memory, reports its spec and
// decodes the full raster into a caller-provided float32 buffer.
package imageio

import (
	"fmt"
	"sort"
	"sync"

	apperrors "go-image-loader/internal/errors"
)

// DefaultBackend is the pure Go backend built on the image package registry.
const DefaultBackend = "go"

// Spec describes an opened image.
type Spec struct {
	Width    int
	Height   int
	Channels int
	Format   string // decoder name, e.g. "png"
	MIME     string
}

// SampleCount returns Width*Height*Channels.
func (s Spec) SampleCount() int {
	return s.Width * s.Height * s.Channels
}

// Input is an opened image. It must be closed exactly once.
type Input interface {
	Spec() Spec
	// ReadImage decodes every pixel and channel into dst as float32.
	// len(dst) must equal Spec().SampleCount().
	ReadImage(dst []float32) error
	Close() error
}

// Opener opens images for reading.
type Opener interface {
	Open(path string) (Input, error)
	OpenBytes(data []byte, name string) (Input, error)
}

// LimitedOpener is an Opener that can refuse an oversized image from its
// header, before any pixel memory is allocated.
type LimitedOpener interface {
	Opener
	// WithMaxSamples returns an Opener that rejects images whose
	// Width*Height*Channels exceeds n. Zero disables the limit.
	WithMaxSamples(n int) Opener
}

// CheckSamples returns a validation error when width*height*channels
// exceeds limit. A limit of zero or less disables the check.
func CheckSamples(width, height, channels, limit int) error {
	if limit <= 0 || width <= 0 || height <= 0 || channels <= 0 {
		return nil
	}
	perColumn := int64(height) * int64(channels)
	if int64(width) > int64(limit)/perColumn {
		return apperrors.NewValidationError(
			fmt.Sprintf("image %dx%dx%d exceeds the limit of %d samples", width, height, channels, limit), nil)
	}
	return nil
}

var (
	backendsMu sync.RWMutex
	backends   = map[string]Opener{DefaultBackend: NewGoOpener()}
)

// RegisterBackend makes an Opener available under name. Registering the
// same name twice replaces the earlier backend.
func RegisterBackend(name string, o Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = o
}

// Backend returns the Opener registered under name. An empty name selects
// DefaultBackend.
func Backend(name string) (Opener, error) {
	if name == "" {
		name = DefaultBackend
	}
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	o, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown image backend %q (available: %v)", name, backendNames())
	}
	return o, nil
}

// Backends lists the registered backend names in sorted order.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	return backendNames()
}

func backendNames() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
