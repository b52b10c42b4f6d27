package validation

import (
	"net/url"
	"strings"

	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/storage"
)

// LocationKind says where an image lives
type LocationKind string

const (
	LocationLocal LocationKind = "local"
	LocationHTTP  LocationKind = "http"
	LocationBlob  LocationKind = "blob"
)

// Location is a validated image location
type Location struct {
	Kind LocationKind
	// Raw is the location as given, trimmed
	Raw string
	// Path is the filesystem path for local locations
	Path string
}

// LocationValidator handles location validation logic
type LocationValidator struct {
	allowedSchemes []string
	allowedHosts   []string
	allowLocal     bool
}

// NewLocationValidator creates a validator accepting http, https and
// azblob URLs, plus local paths when allowLocal is set
func NewLocationValidator(allowLocal bool) *LocationValidator {
	return &LocationValidator{
		allowedSchemes: []string{"http", "https", "azblob"},
		allowedHosts:   []string{}, // empty means all hosts allowed
		allowLocal:     allowLocal,
	}
}

// NewLocationValidatorWithOptions creates a validator with custom options
func NewLocationValidatorWithOptions(schemes []string, hosts []string, allowLocal bool) *LocationValidator {
	return &LocationValidator{
		allowedSchemes: schemes,
		allowedHosts:   hosts,
		allowLocal:     allowLocal,
	}
}

// Validate classifies location and checks it against the policy
func (v *LocationValidator) Validate(location string) (Location, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return Location{}, apperrors.NewValidationError("location cannot be empty", nil)
	}

	if isLocalPath(location) {
		return v.local(location, location)
	}

	parsedURL, err := url.Parse(location)
	if err != nil {
		return Location{}, apperrors.NewValidationError("invalid URL format", err)
	}

	scheme := strings.ToLower(parsedURL.Scheme)
	if scheme == "file" {
		if parsedURL.Host != "" && parsedURL.Host != "localhost" {
			return Location{}, apperrors.NewValidationError("file URL must not name a remote host", nil)
		}
		if parsedURL.Path == "" {
			return Location{}, apperrors.NewValidationError("file URL has no path", nil)
		}
		return v.local(location, parsedURL.Path)
	}

	if !v.isSchemeAllowed(scheme) {
		return Location{}, apperrors.NewValidationError("URL scheme not allowed", nil)
	}

	if parsedURL.Host == "" {
		return Location{}, apperrors.NewValidationError("URL must have a valid host", nil)
	}

	if len(v.allowedHosts) > 0 && !v.isHostAllowed(parsedURL.Host) {
		return Location{}, apperrors.NewValidationError("URL host not allowed", nil)
	}

	kind := LocationHTTP
	if storage.IsBlobURL(location) {
		kind = LocationBlob
	}
	return Location{Kind: kind, Raw: location}, nil
}

func (v *LocationValidator) local(raw, path string) (Location, error) {
	if !v.allowLocal {
		return Location{}, apperrors.NewValidationError("local paths are not allowed", nil)
	}
	return Location{Kind: LocationLocal, Raw: raw, Path: path}, nil
}

// isLocalPath reports whether location has no URL scheme
func isLocalPath(location string) bool {
	if strings.Contains(location, "://") {
		return false
	}
	if strings.HasPrefix(location, "data:") {
		return false
	}
	return true
}

// isSchemeAllowed checks if the URL scheme is in the allowed list
func (v *LocationValidator) isSchemeAllowed(scheme string) bool {
	for _, allowed := range v.allowedSchemes {
		if scheme == allowed {
			return true
		}
	}
	return false
}

// isHostAllowed checks if the URL host is in the allowed list
// Returns true if no host restrictions are set (empty allowedHosts)
func (v *LocationValidator) isHostAllowed(host string) bool {
	if len(v.allowedHosts) == 0 {
		return true
	}
	for _, allowed := range v.allowedHosts {
		if host == allowed {
			return true
		}
	}
	return false
}
