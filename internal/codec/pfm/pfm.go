// Package pfm implements a decoder and encoder for Portable Float Map images.
//
// A PFM file starts with an ASCII header: "PF" (RGB) or "Pf" (grayscale),
// the width and height, and a scale factor whose sign gives the byte order
// (negative means little endian). The raster follows as 32-bit floats,
// stored bottom row first.
package pfm

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"strconv"

	"go-image-loader/pkg/floatimage"
)

// maxDimension bounds the header values so a corrupt file cannot ask for
// an absurd allocation.
const maxDimension = 1 << 16

// FormatError reports that the input is not a valid PFM file.
type FormatError string

func (e FormatError) Error() string { return "pfm: invalid format: " + string(e) }

var errUnsupportedChannels = errors.New("pfm: only 1 or 3 channel images can be encoded")

func init() {
	image.RegisterFormat("pfm", "PF", Decode, DecodeConfig)
	image.RegisterFormat("pfm", "Pf", Decode, DecodeConfig)
}

type header struct {
	width, height int
	channels      int
	order         binary.ByteOrder
}

func readHeader(br *bufio.Reader) (header, error) {
	var h header

	magic, err := readToken(br)
	if err != nil {
		return h, err
	}
	switch magic {
	case "PF":
		h.channels = 3
	case "Pf":
		h.channels = 1
	default:
		return h, FormatError("bad magic " + strconv.Quote(magic))
	}

	if h.width, err = readInt(br); err != nil {
		return h, err
	}
	if h.height, err = readInt(br); err != nil {
		return h, err
	}
	if h.width <= 0 || h.height <= 0 || h.width > maxDimension || h.height > maxDimension {
		return h, FormatError(fmt.Sprintf("bad dimensions %dx%d", h.width, h.height))
	}

	tok, err := readToken(br)
	if err != nil {
		return h, err
	}
	scale, err := strconv.ParseFloat(tok, 64)
	if err != nil || scale == 0 || math.IsNaN(scale) {
		return h, FormatError("bad scale " + strconv.Quote(tok))
	}
	if scale < 0 {
		h.order = binary.LittleEndian
	} else {
		h.order = binary.BigEndian
	}

	// Exactly one whitespace byte separates the header from the raster;
	// readToken has already consumed it.
	return h, nil
}

// readToken returns the next whitespace-delimited header token and
// consumes the single whitespace byte that terminates it.
func readToken(br *bufio.Reader) (string, error) {
	var buf []byte
	for {
		c, err := br.ReadByte()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return "", err
		}
		if isSpace(c) {
			if len(buf) == 0 {
				continue
			}
			return string(buf), nil
		}
		buf = append(buf, c)
		if len(buf) > 32 {
			return "", FormatError("header token too long")
		}
	}
}

func readInt(br *bufio.Reader) (int, error) {
	tok, err := readToken(br)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, FormatError("bad integer " + strconv.Quote(tok))
	}
	return n, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// DecodeConfig returns the dimensions and colour model of a PFM image
// without reading the raster.
func DecodeConfig(r io.Reader) (image.Config, error) {
	h, err := readHeader(bufio.NewReader(r))
	if err != nil {
		return image.Config{}, err
	}
	model := color.NRGBA64Model
	if h.channels == 1 {
		model = color.Gray16Model
	}
	return image.Config{ColorModel: model, Width: h.width, Height: h.height}, nil
}

// Decode reads a PFM image. The result is a *floatimage.FloatImage with
// rows ordered top to bottom.
func Decode(r io.Reader) (image.Image, error) {
	br := bufio.NewReader(r)
	h, err := readHeader(br)
	if err != nil {
		return nil, err
	}

	img := floatimage.New(image.Rect(0, 0, h.width, h.height), h.channels)
	row := make([]byte, img.Stride*4)
	for y := h.height - 1; y >= 0; y-- {
		if _, err := io.ReadFull(br, row); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return nil, fmt.Errorf("pfm: reading row %d: %w", h.height-1-y, err)
		}
		dst := img.Pix[y*img.Stride : (y+1)*img.Stride]
		for i := range dst {
			dst[i] = math.Float32frombits(h.order.Uint32(row[i*4:]))
		}
	}
	return img, nil
}

// Encode writes a 1 or 3 channel float image as little-endian PFM.
func Encode(w io.Writer, img *floatimage.FloatImage) error {
	var magic string
	switch img.Channels {
	case 1:
		magic = "Pf"
	case 3:
		magic = "PF"
	default:
		return errUnsupportedChannels
	}

	bw := bufio.NewWriter(w)
	b := img.Bounds()
	if _, err := fmt.Fprintf(bw, "%s\n%d %d\n-1.0\n", magic, b.Dx(), b.Dy()); err != nil {
		return err
	}

	row := make([]byte, b.Dx()*img.Channels*4)
	for y := b.Max.Y - 1; y >= b.Min.Y; y-- {
		i := img.PixOffset(b.Min.X, y)
		src := img.Pix[i : i+b.Dx()*img.Channels]
		for j, v := range src {
			binary.LittleEndian.PutUint32(row[j*4:], math.Float32bits(v))
		}
		if _, err := bw.Write(row); err != nil {
			return err
		}
	}
	return bw.Flush()
}
