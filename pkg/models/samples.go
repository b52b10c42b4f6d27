package models

import (
	"encoding/json"
	"math"
	"strconv"
)

// Samples is a pixel buffer whose JSON form writes NaN and ±Inf as null.
// Float sources such as PFM and OpenEXR can hold them and encoding/json
// rejects them.
type Samples []float32

// MarshalJSON encodes finite samples the way encoding/json encodes float32
func (s Samples) MarshalJSON() ([]byte, error) {
	if s == nil {
		return []byte("null"), nil
	}
	buf := make([]byte, 0, 2+len(s)*8)
	buf = append(buf, '[')
	for i, v := range s {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = appendSample(buf, v)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON reads null back as NaN
func (s *Samples) UnmarshalJSON(data []byte) error {
	var raw []*float32
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw == nil {
		*s = nil
		return nil
	}
	out := make(Samples, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = float32(math.NaN())
			continue
		}
		out[i] = *p
	}
	*s = out
	return nil
}

func appendSample(buf []byte, v float32) []byte {
	f := float64(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return append(buf, "null"...)
	}

	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (float32(abs) < 1e-6 || float32(abs) >= 1e21) {
		format = 'e'
	}
	buf = strconv.AppendFloat(buf, f, format, -1, 32)
	if format == 'e' {
		// e-07 -> e-7
		n := len(buf)
		if n >= 4 && buf[n-4] == 'e' && buf[n-3] == '-' && buf[n-2] == '0' {
			buf[n-2] = buf[n-1]
			buf = buf[:n-1]
		}
	}
	return buf
}
