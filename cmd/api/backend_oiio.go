//go:build oiio

package main

// Registers the OpenImageIO backend, selectable with IMAGE_BACKEND=oiio.
import _ "go-image-loader/internal/imageio/oiio"
