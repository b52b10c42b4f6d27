package imageio

import (
	"os"
	"path/filepath"
	"testing"

	apperrors "go-image-loader/internal/errors"
)

func TestWriteFile_RoundTrip(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		spec      Spec
		pixels    []float32
		wantChans int
		tolerance float32
	}{
		{
			name:      "pfm gray is exact",
			file:      "out.pfm",
			spec:      Spec{Width: 2, Height: 2, Channels: 1},
			pixels:    []float32{0, 0.25, 0.5, 1},
			wantChans: 1,
		},
		{
			name:      "pfm rgb keeps values above one",
			file:      "out.pfm",
			spec:      Spec{Width: 1, Height: 1, Channels: 3},
			pixels:    []float32{4.5, 0.125, 0},
			wantChans: 3,
		},
		{
			name:      "png gray 16-bit",
			file:      "out.png",
			spec:      Spec{Width: 2, Height: 1, Channels: 1},
			pixels:    []float32{0.25, 0.75},
			wantChans: 1,
			tolerance: 1.0 / 65535,
		},
		{
			name:      "tiff rgba",
			file:      "out.tiff",
			spec:      Spec{Width: 1, Height: 1, Channels: 4},
			pixels:    []float32{1, 0, 0, 0.5},
			wantChans: 4,
			tolerance: 1.0 / 65535,
		},
		{
			name:      "bmp rgb 8-bit",
			file:      "out.bmp",
			spec:      Spec{Width: 1, Height: 1, Channels: 3},
			pixels:    []float32{1, 0, 1},
			wantChans: 3,
			tolerance: 1.0 / 255,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			if err := WriteFile(path, tt.spec, tt.pixels); err != nil {
				t.Fatalf("WriteFile: %v", err)
			}

			in, err := NewGoOpener().Open(path)
			if err != nil {
				t.Fatalf("Open: %v", err)
			}
			defer in.Close()

			spec := in.Spec()
			if spec.Width != tt.spec.Width || spec.Height != tt.spec.Height {
				t.Errorf("Expected %dx%d, got %dx%d", tt.spec.Width, tt.spec.Height, spec.Width, spec.Height)
			}
			if spec.Channels != tt.wantChans {
				t.Fatalf("Expected %d channels, got %d", tt.wantChans, spec.Channels)
			}

			got := readAll(t, in)
			for i, want := range tt.pixels {
				d := got[i] - want
				if d < 0 {
					d = -d
				}
				if d > tt.tolerance {
					t.Errorf("Sample %d: expected %v, got %v", i, want, got[i])
				}
			}
		})
	}
}

func TestWriteFile_Rejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name     string
		file     string
		spec     Spec
		pixels   []float32
		wantType apperrors.ErrorType
	}{
		{"buffer size mismatch", "a.png", Spec{Width: 2, Height: 2, Channels: 1}, make([]float32, 3), apperrors.ErrorTypeValidation},
		{"zero width", "a.png", Spec{Width: 0, Height: 2, Channels: 1}, nil, apperrors.ErrorTypeValidation},
		{"exr", "a.exr", Spec{Width: 1, Height: 1, Channels: 3}, make([]float32, 3), apperrors.ErrorTypeUnsupportedFormat},
		{"unknown extension", "a.xyz", Spec{Width: 1, Height: 1, Channels: 3}, make([]float32, 3), apperrors.ErrorTypeUnsupportedFormat},
		{"pfm with alpha", "a.pfm", Spec{Width: 1, Height: 1, Channels: 4}, make([]float32, 4), apperrors.ErrorTypeUnsupportedFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.file)
			err := WriteFile(path, tt.spec, tt.pixels)
			if !apperrors.IsType(err, tt.wantType) {
				t.Errorf("Expected %s error, got: %v", tt.wantType, err)
			}
			if _, statErr := os.Stat(path); statErr == nil {
				t.Error("Expected no output file to be created")
			}
		})
	}
}

func TestIsHDR(t *testing.T) {
	for name, want := range map[string]bool{
		"a.hdr":  true,
		"a.EXR":  true,
		"a.pfm":  true,
		"a.dpx":  true,
		"a.png":  false,
		"a.jpeg": false,
		"noext":  false,
	} {
		if got := IsHDR(name); got != want {
			t.Errorf("IsHDR(%q) = %v, want %v", name, got, want)
		}
	}
}
