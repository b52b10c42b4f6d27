//go:build oiio

// Package oiio registers an imageio backend backed by OpenImageIO. It is
// only built with the "oiio" build tag and needs the OpenImageIO
// development files visible to pkg-config.
package oiio

/*
#cgo CXXFLAGS: -std=c++17
#cgo pkg-config: OpenImageIO
#include <stdlib.h>
#include "oiio_wrapper.h"
*/
import "C"

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unsafe"

	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/imageio"
)

// Name is the backend name used with imageio.Backend.
const Name = "oiio"

func init() {
	imageio.RegisterBackend(Name, opener{})
}

var errInputClosed = errors.New("oiio: input is closed")

type opener struct {
	maxSamples int
}

func (opener) WithMaxSamples(n int) imageio.Opener {
	return opener{maxSamples: n}
}

func (o opener) Open(path string) (imageio.Input, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NewNotFoundError("image file does not exist", err)
		}
		return nil, apperrors.NewInternalError("cannot stat image file", err)
	}
	if info.IsDir() {
		return nil, apperrors.NewValidationError("path is a directory", nil)
	}
	return o.open(path, "")
}

// OpenBytes spools data to a temporary file so OpenImageIO can sniff the
// format from the name and contents. The file is removed on Close.
func (o opener) OpenBytes(data []byte, name string) (imageio.Input, error) {
	f, err := os.CreateTemp("", "oiio-*"+filepath.Ext(name))
	if err != nil {
		return nil, apperrors.NewInternalError("cannot create temporary file", err)
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, apperrors.NewInternalError("cannot write temporary file", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, apperrors.NewInternalError("cannot write temporary file", err)
	}

	in, err := o.open(tmp, tmp)
	if err != nil {
		os.Remove(tmp)
		return nil, err
	}
	return in, nil
}

func (o opener) open(path, cleanup string) (imageio.Input, error) {
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var cErr *C.char
	h := C.oiio_open(cPath, &cErr)
	if h == nil {
		msg := takeMessage(cErr, "failed to open image")
		return nil, classifyOpenError(path, msg)
	}

	var w, ht, c, depth, deep C.int
	C.oiio_spec(h, &w, &ht, &c, &depth, &deep)
	if err := checkLayout(filepath.Base(path), int(w), int(ht), int(c), int(depth), deep != 0, o.maxSamples); err != nil {
		C.oiio_close(h)
		return nil, err
	}

	return &input{
		h:       h,
		cleanup: cleanup,
		spec: imageio.Spec{
			Width:    int(w),
			Height:   int(ht),
			Channels: int(c),
			Format:   C.GoString(C.oiio_format(h)),
		},
	}, nil
}

// checkLayout accepts only flat images whose raster is exactly
// width*height*channels floats, within the sample limit.
func checkLayout(name string, width, height, channels, depth int, deep bool, maxSamples int) error {
	if width <= 0 || height <= 0 || channels <= 0 {
		return apperrors.NewDecodeError(fmt.Sprintf("image %s reports invalid size %dx%dx%d", name, width, height, channels), nil)
	}
	if deep {
		return apperrors.NewUnsupportedFormatError(fmt.Sprintf("image %s holds deep data", name), nil)
	}
	if depth != 1 {
		return apperrors.NewUnsupportedFormatError(fmt.Sprintf("image %s is a volume with depth %d", name, depth), nil)
	}
	return imageio.CheckSamples(width, height, channels, maxSamples)
}

func takeMessage(cErr *C.char, fallback string) string {
	if cErr == nil {
		return fallback
	}
	defer C.free(unsafe.Pointer(cErr))
	if msg := C.GoString(cErr); msg != "" {
		return msg
	}
	return fallback
}

func classifyOpenError(path, msg string) error {
	cause := errors.New(msg)
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "format") || strings.Contains(lower, "not support") {
		return apperrors.NewUnsupportedFormatError(fmt.Sprintf("no OpenImageIO plugin reads %s", filepath.Base(path)), cause)
	}
	return apperrors.NewDecodeError(fmt.Sprintf("cannot open %s", filepath.Base(path)), cause)
}

type input struct {
	h       *C.oiio_input
	spec    imageio.Spec
	cleanup string
}

func (in *input) Spec() imageio.Spec { return in.spec }

func (in *input) ReadImage(dst []float32) error {
	if in.h == nil {
		return errInputClosed
	}
	if want := in.spec.SampleCount(); len(dst) != want {
		return fmt.Errorf("oiio: buffer holds %d samples, image needs %d", len(dst), want)
	}

	var cErr *C.char
	if C.oiio_read(in.h, (*C.float)(unsafe.Pointer(&dst[0])), &cErr) != 0 {
		return errors.New(takeMessage(cErr, "read_image failed"))
	}
	return nil
}

func (in *input) Close() error {
	if in.h == nil {
		return nil
	}
	C.oiio_close(in.h)
	in.h = nil
	if in.cleanup != "" {
		return os.Remove(in.cleanup)
	}
	return nil
}
