// Package storage fetches encoded image bytes from remote locations.
package storage

import (
	"context"
	"fmt"
	"io"

	apperrors "go-image-loader/internal/errors"
)

// DefaultMaxImageBytes caps a single download when no limit is configured.
const DefaultMaxImageBytes int64 = 50 << 20

// Fetcher downloads the raw bytes stored at a location.
type Fetcher interface {
	Fetch(ctx context.Context, location string) ([]byte, error)
}

// readLimited reads r fully, failing once more than limit bytes arrive.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to read image body", err)
	}
	if int64(len(data)) > limit {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("image exceeds maximum size of %d bytes", limit), nil)
	}
	return data, nil
}
