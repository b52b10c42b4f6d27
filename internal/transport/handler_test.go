package transport

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"go-image-loader/internal/analyzer"
	"go-image-loader/internal/config"
	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/imageio"
	"go-image-loader/internal/loader"
	"go-image-loader/internal/observer"
	"go-image-loader/internal/repository"
	"go-image-loader/internal/service"
	"go-image-loader/internal/storage"
	"go-image-loader/pkg/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		RequestTimeout:      5 * time.Second,
		ImageFetchTimeout:   time.Second,
		MaxRequestBodySize:  1 << 16,
		MaxImageBytes:       1 << 20,
		MaxPixelsInResponse: 64,
		AllowLocalPaths:     true,
	}
}

type testServer struct {
	handler http.Handler
	metrics *observer.MetricsObserver
	loader  *loader.Loader
	dir     string
}

func newTestServer(t *testing.T) testServer {
	t.Helper()
	cfg := testConfig()
	l := loader.New(imageio.NewGoOpener())
	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(metrics)

	repo, err := repository.NewImageRepository(l, repository.Options{
		AllowLocal: true,
		HTTP:       storage.NewHTTPFetcher(storage.WithBackoff(time.Millisecond)),
		Events:     events,
	})
	if err != nil {
		t.Fatal(err)
	}
	stats := analyzer.NewStatsCalculator(2)
	t.Cleanup(func() { stats.Close() })

	svc := service.NewImageLoadService(repo, stats, events, cfg.MaxPixelsInResponse)
	return testServer{
		handler: NewHandler(svc, MetricsSource{Events: metrics, Loader: l}, cfg),
		metrics: metrics,
		loader:  l,
		dir:     t.TempDir(),
	}
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func rgbPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.Set(0, 0, color.NRGBA{R: 255, A: 255})
	img.Set(1, 0, color.NRGBA{B: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func postLoad(t *testing.T, h http.Handler, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var payload []byte
	switch b := body.(type) {
	case string:
		payload = []byte(b)
	default:
		var err error
		if payload, err = json.Marshal(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":"available"`) {
		t.Errorf("Unexpected body %s", w.Body.String())
	}
}

func TestLoad_LocalImage(t *testing.T) {
	s := newTestServer(t)
	path := writeFile(t, s.dir, "rgb.png", rgbPNG(t))

	w := postLoad(t, s.handler, "/load?pixels=true", models.LoadRequest{Location: path, IncludeStats: true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp models.LoadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Width != 2 || resp.Height != 1 || resp.Channels != 3 {
		t.Errorf("Unexpected dimensions %dx%dx%d", resp.Width, resp.Height, resp.Channels)
	}
	want := []float32{1, 0, 0, 0, 0, 1}
	if len(resp.Pixels) != len(want) {
		t.Fatalf("Expected %d samples, got %d", len(want), len(resp.Pixels))
	}
	for i := range want {
		if resp.Pixels[i] != want[i] {
			t.Errorf("Sample %d: expected %v, got %v", i, want[i], resp.Pixels[i])
		}
	}
	if len(resp.Stats) != 3 {
		t.Errorf("Expected 3 channel stats, got %d", len(resp.Stats))
	}
	if resp.MIME != "image/png" {
		t.Errorf("Expected image/png, got %q", resp.MIME)
	}
}

func TestLoad_NonFiniteHDRImage(t *testing.T) {
	s := newTestServer(t)
	data := []byte("Pf\n2 1\n-1.0\n")
	for _, v := range []float32{float32(math.NaN()), 0.5} {
		data = binary.LittleEndian.AppendUint32(data, math.Float32bits(v))
	}
	path := writeFile(t, s.dir, "nan.pfm", data)

	w := postLoad(t, s.handler, "/load", models.LoadRequest{Location: path, IncludePixels: true, IncludeStats: true})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"pixels":[null,0.5]`) {
		t.Errorf("Expected NaN sample encoded as null, got %s", w.Body.String())
	}

	var resp models.LoadResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !math.IsNaN(float64(resp.Pixels[0])) {
		t.Errorf("Expected null to decode as NaN, got %v", resp.Pixels[0])
	}
	if len(resp.Stats) != 1 || resp.Stats[0].NonFinite != 1 || resp.Stats[0].Mean != 0.5 {
		t.Errorf("Unexpected stats %+v", resp.Stats)
	}
}

func TestLoad_RemoteImage(t *testing.T) {
	data := rgbPNG(t)
	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rgb.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Write(data)
	}))
	defer remote.Close()

	s := newTestServer(t)

	w := postLoad(t, s.handler, "/load", models.LoadRequest{Location: remote.URL + "/rgb.png"})
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", w.Code, w.Body.String())
	}

	w = postLoad(t, s.handler, "/load", models.LoadRequest{Location: remote.URL + "/missing.png"})
	if w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing remote image, got %d", w.Code)
	}

	if got := s.metrics.GetMetrics().ImagesFetched; got != 1 {
		t.Errorf("Expected 1 fetched image, got %d", got)
	}
}

func TestLoad_ErrorStatusCodes(t *testing.T) {
	s := newTestServer(t)
	textPath := writeFile(t, s.dir, "notes.txt", []byte("plain text, not an image\n"))
	corruptPath := writeFile(t, s.dir, "corrupt.png", rgbPNG(t)[:40])
	bigPath := writeFile(t, s.dir, "big.png", func() []byte {
		var buf bytes.Buffer
		png.Encode(&buf, image.NewGray(image.Rect(0, 0, 16, 16)))
		return buf.Bytes()
	}())

	tests := []struct {
		name     string
		target   string
		body     interface{}
		wantCode int
		wantType apperrors.ErrorType
	}{
		{"missing file", "/load", models.LoadRequest{Location: filepath.Join(s.dir, "missing.png")}, http.StatusNotFound, apperrors.ErrorTypeNotFound},
		{"text file", "/load", models.LoadRequest{Location: textPath}, http.StatusUnsupportedMediaType, apperrors.ErrorTypeUnsupportedFormat},
		{"corrupt png", "/load", models.LoadRequest{Location: corruptPath}, http.StatusUnprocessableEntity, apperrors.ErrorTypeDecode},
		{"malformed json", "/load", "{not json", http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{"missing location", "/load", map[string]string{}, http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{"bad scheme", "/load", models.LoadRequest{Location: "ftp://example.com/a.png"}, http.StatusBadRequest, apperrors.ErrorTypeValidation},
		{"too many pixels", "/load?pixels=true", models.LoadRequest{Location: bigPath}, http.StatusBadRequest, apperrors.ErrorTypeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := postLoad(t, s.handler, tt.target, tt.body)
			if w.Code != tt.wantCode {
				t.Fatalf("Expected %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			var resp models.ErrorResponse
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if resp.Type != string(tt.wantType) {
				t.Errorf("Expected error type %s, got %s", tt.wantType, resp.Type)
			}
		})
	}

	if out := s.loader.Stats().Outstanding; out != 0 {
		t.Errorf("Expected no outstanding buffers, got %d", out)
	}
}

func TestLoad_UnsupportedFormatDetails(t *testing.T) {
	s := newTestServer(t)
	textPath := writeFile(t, s.dir, "notes.txt", []byte("plain text, not an image\n"))

	w := postLoad(t, s.handler, "/load", models.LoadRequest{Location: textPath})
	var resp models.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(resp.Details, "text/plain") {
		t.Errorf("Expected detected MIME type in details, got %q", resp.Details)
	}
}

type stubService struct{ err error }

func (s stubService) LoadImage(context.Context, models.LoadRequest) (*models.LoadResponse, error) {
	return nil, s.err
}

func (s stubService) ValidateLocation(string) error { return nil }

func TestLoad_UpstreamStatusCodes(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{"network", apperrors.NewNetworkError("upstream failed", nil), http.StatusBadGateway},
		{"timeout", apperrors.NewTimeoutError("upstream slow", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"bare deadline", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"internal", apperrors.NewInternalError("boom", nil), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(stubService{err: tt.err}, MetricsSource{}, testConfig())
			w := postLoad(t, h, "/load", models.LoadRequest{Location: "https://example.com/a.png"})
			if w.Code != tt.wantCode {
				t.Errorf("Expected %d, got %d", tt.wantCode, w.Code)
			}
		})
	}
}

func TestLoad_RequestTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRequestBodySize = 16
	h := NewHandler(stubService{}, MetricsSource{}, cfg)

	w := postLoad(t, h, "/load", models.LoadRequest{Location: "/a/very/long/path/that/exceeds/the/limit.png"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for oversized body, got %d", w.Code)
	}
}

func TestMetrics(t *testing.T) {
	s := newTestServer(t)
	path := writeFile(t, s.dir, "rgb.png", rgbPNG(t))
	postLoad(t, s.handler, "/load", models.LoadRequest{Location: path})
	postLoad(t, s.handler, "/load", models.LoadRequest{Location: filepath.Join(s.dir, "missing.png")})

	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}

	var body struct {
		Events observer.Metrics `json:"events"`
		Loader loader.Stats     `json:"loader"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Events.TotalLoads != 2 || body.Events.SuccessfulLoads != 1 || body.Events.FailedLoads != 1 {
		t.Errorf("Unexpected event metrics %+v", body.Events)
	}
	if body.Loader.Loads != 1 || body.Loader.Releases != 1 || body.Loader.Outstanding != 0 {
		t.Errorf("Unexpected loader stats %+v", body.Loader)
	}
}
