package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGrayPNG(t *testing.T, dir string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	copy(img.Pix, []uint8{0, 51, 204, 255})
	path := filepath.Join(dir, "gray.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInfo(t *testing.T) {
	path := writeGrayPNG(t, t.TempDir())

	out, err := execute(t, "info", "--json=false", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{"Dimensions: 2 x 2", "Channels:   1", "png", "channel 0: min=0 max=1"} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestInfo_JSON(t *testing.T) {
	path := writeGrayPNG(t, t.TempDir())

	out, err := execute(t, "info", "--json", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	var info imageInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("Invalid JSON %q: %v", out, err)
	}
	if info.Width != 2 || info.Height != 2 || info.Channels != 1 || info.HDR {
		t.Errorf("Unexpected info %+v", info)
	}
	if len(info.Stats) != 1 || info.Stats[0].Max != 1 {
		t.Errorf("Unexpected stats %+v", info.Stats)
	}
}

func TestInfo_MissingFile(t *testing.T) {
	_, err := execute(t, "info", filepath.Join(t.TempDir(), "missing.png"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !strings.Contains(err.Error(), "not_found") {
		t.Errorf("Expected not_found error, got %v", err)
	}
}

func TestDump(t *testing.T) {
	path := writeGrayPNG(t, t.TempDir())

	out, err := execute(t, "dump", "--limit", "3", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := []string{"# 2x2, 1 channels", "0 0: 0", "1 0: 0.2", "0 1: 0.8", "# 1 more pixels"}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(want), len(lines), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], lines[i])
		}
	}
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	in := writeGrayPNG(t, dir)
	out := filepath.Join(dir, "gray.pfm")

	if _, err := execute(t, "convert", in, out); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	l, err := newLoader()
	if err != nil {
		t.Fatal(err)
	}
	img, err := l.Load(out)
	if err != nil {
		t.Fatalf("Reloading converted image: %v", err)
	}
	defer img.Release()
	if img.Format != "pfm" || img.Width != 2 || img.Channels != 1 {
		t.Errorf("Unexpected converted image %dx%dx%d %s", img.Width, img.Height, img.Channels, img.Format)
	}
	if img.Pixels[3] != 1 {
		t.Errorf("Expected last sample 1, got %v", img.Pixels[3])
	}
}

func TestConvert_UnsupportedExtension(t *testing.T) {
	dir := t.TempDir()
	in := writeGrayPNG(t, dir)

	if _, err := execute(t, "convert", in, filepath.Join(dir, "gray.exr")); err == nil {
		t.Error("Expected error for unsupported output format")
	}
}

func TestUnknownBackend(t *testing.T) {
	path := writeGrayPNG(t, t.TempDir())
	defer func() { backendName = "" }()

	if _, err := execute(t, "info", "--backend", "nope", path); err == nil {
		t.Error("Expected error for unknown backend")
	}
}
