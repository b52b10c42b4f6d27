package storage

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/logger"
)

const defaultAttempts = 3

// HTTPFetcher downloads images over HTTP(S), retrying transient failures.
// Transport errors and 5xx responses are retried with linear backoff;
// 4xx responses fail immediately.
type HTTPFetcher struct {
	client   *http.Client
	maxBytes int64
	attempts int
	backoff  time.Duration
}

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithTimeout sets the overall client timeout for one attempt.
func WithTimeout(d time.Duration) HTTPOption {
	return func(h *HTTPFetcher) {
		if d > 0 {
			h.client.Timeout = d
		}
	}
}

// WithMaxBytes caps the response body size.
func WithMaxBytes(n int64) HTTPOption {
	return func(h *HTTPFetcher) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// WithBackoff sets the base delay between attempts. Attempt n waits n*d.
func WithBackoff(d time.Duration) HTTPOption {
	return func(h *HTTPFetcher) {
		h.backoff = d
	}
}

// NewHTTPFetcher creates an HTTP fetcher
func NewHTTPFetcher(opts ...HTTPOption) *HTTPFetcher {
	transport := &http.Transport{
		Proxy:                  http.ProxyFromEnvironment,
		MaxIdleConns:           10,
		MaxIdleConnsPerHost:    2,
		IdleConnTimeout:        30 * time.Second,
		TLSHandshakeTimeout:    10 * time.Second,
		ResponseHeaderTimeout:  10 * time.Second,
		ExpectContinueTimeout:  1 * time.Second,
		MaxResponseHeaderBytes: 4096,
	}

	h := &HTTPFetcher{
		client: &http.Client{
			Transport: transport,
			Timeout:   30 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 3 {
					return fmt.Errorf("too many redirects (limit: 3)")
				}
				return nil
			},
		},
		maxBytes: DefaultMaxImageBytes,
		attempts: defaultAttempts,
		backoff:  time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// statusError records a non-200 response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	if e.code >= 500 {
		return fmt.Sprintf("server error: status code %d", e.code)
	}
	return fmt.Sprintf("client error: status code %d", e.code)
}

// Fetch downloads imageURL and returns the response body.
func (h *HTTPFetcher) Fetch(ctx context.Context, imageURL string) ([]byte, error) {
	var lastErr error

	for attempt := 0; attempt < h.attempts; attempt++ {
		if attempt > 0 {
			delay := time.Duration(attempt) * h.backoff
			select {
			case <-ctx.Done():
				return nil, contextError(ctx.Err(), imageURL)
			case <-time.After(delay):
			}
		}

		data, err := h.fetchOnce(ctx, imageURL)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.code < 500 {
			if se.code == http.StatusNotFound {
				return nil, apperrors.NewNotFoundError(fmt.Sprintf("image not found at %s", imageURL), err)
			}
			return nil, apperrors.NewNetworkError(fmt.Sprintf("request for %s was rejected", imageURL), err)
		}
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, contextError(ctx.Err(), imageURL)
		}

		logger.WithError(err).WithFields(logrus.Fields{
			"url":     imageURL,
			"attempt": attempt + 1,
		}).Debug("Image fetch attempt failed")
	}

	return nil, apperrors.NewNetworkError(
		fmt.Sprintf("failed to fetch image after %d attempts", h.attempts), lastErr)
}

func (h *HTTPFetcher) fetchOnce(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid URL", err)
	}
	req.Header.Set("Accept", "image/*, */*")
	req.Header.Set("User-Agent", "Go-Image-Loader/1.0")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}
	if resp.ContentLength > h.maxBytes {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("image exceeds maximum size of %d bytes", h.maxBytes), nil)
	}
	return readLimited(resp.Body, h.maxBytes)
}

func contextError(err error, location string) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewTimeoutError(fmt.Sprintf("timed out fetching %s", location), err)
	}
	return apperrors.NewNetworkError(fmt.Sprintf("fetch of %s cancelled", location), err)
}
