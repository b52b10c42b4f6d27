package repository

import "errors"

var (
	// ErrLocalPathsDisabled indicates local filesystem access is turned off
	ErrLocalPathsDisabled = errors.New("local paths are disabled")

	// ErrOutsideRoot indicates a local path escapes the configured root
	ErrOutsideRoot = errors.New("path is outside the local root")

	// ErrNoFetcher indicates no storage backend serves the location
	ErrNoFetcher = errors.New("no storage backend for location")
)
