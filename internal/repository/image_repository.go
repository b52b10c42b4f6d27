package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"

	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/loader"
	"go-image-loader/internal/observer"
	"go-image-loader/internal/storage"
	"go-image-loader/pkg/validation"
)

// ImageRepository resolves an image location and decodes it
type ImageRepository interface {
	// ValidateLocation classifies location and checks it against policy
	ValidateLocation(location string) (validation.Location, error)

	// LoadImage decodes the image at location. The caller owns the result
	// and must Release it.
	LoadImage(ctx context.Context, location string) (*loader.DecodedImage, error)
}

// Options configures an ImageRepository
type Options struct {
	AllowLocal bool
	// LocalRoot confines local paths to a directory when set
	LocalRoot string
	HTTP      storage.Fetcher
	Blob      storage.Fetcher
	// Events receives fetch events; may be nil
	Events observer.Subject
}

type imageRepository struct {
	loader     *loader.Loader
	validator  *validation.LocationValidator
	allowLocal bool
	localRoot  string
	realRoot   string // localRoot with symlinks resolved
	fetchers   map[validation.LocationKind]storage.Fetcher
	events     observer.Subject
}

// NewImageRepository creates a repository that decodes with l
func NewImageRepository(l *loader.Loader, opts Options) (ImageRepository, error) {
	r := &imageRepository{
		loader:     l,
		validator:  validation.NewLocationValidator(true),
		allowLocal: opts.AllowLocal,
		fetchers:   make(map[validation.LocationKind]storage.Fetcher),
		events:     opts.Events,
	}

	if opts.LocalRoot != "" {
		root, err := homedir.Expand(opts.LocalRoot)
		if err != nil {
			return nil, fmt.Errorf("expand local root: %w", err)
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve local root: %w", err)
		}
		r.localRoot = root
		r.realRoot = root
		if resolved, err := filepath.EvalSymlinks(root); err == nil {
			r.realRoot = resolved
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("resolve local root: %w", err)
		}
	}
	if opts.HTTP != nil {
		r.fetchers[validation.LocationHTTP] = opts.HTTP
	}
	if opts.Blob != nil {
		r.fetchers[validation.LocationBlob] = opts.Blob
	}
	return r, nil
}

// ValidateLocation classifies location and checks it against policy
func (r *imageRepository) ValidateLocation(location string) (validation.Location, error) {
	loc, err := r.validator.Validate(location)
	if err != nil {
		return validation.Location{}, err
	}
	if loc.Kind == validation.LocationLocal {
		if !r.allowLocal {
			return validation.Location{}, apperrors.NewValidationError("local paths are not allowed", ErrLocalPathsDisabled)
		}
		path, err := r.resolveLocal(loc.Path)
		if err != nil {
			return validation.Location{}, err
		}
		loc.Path = path
	}
	return loc, nil
}

// LoadImage decodes the image at location
func (r *imageRepository) LoadImage(ctx context.Context, location string) (*loader.DecodedImage, error) {
	loc, err := r.ValidateLocation(location)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, apperrors.NewTimeoutError("request cancelled before load", err)
	}

	if loc.Kind == validation.LocationLocal {
		return r.loader.Load(loc.Path)
	}

	fetcher, ok := r.fetchers[loc.Kind]
	if !ok {
		return nil, apperrors.NewValidationError(
			fmt.Sprintf("%s locations are not configured", loc.Kind), ErrNoFetcher)
	}

	start := time.Now()
	data, err := fetcher.Fetch(ctx, loc.Raw)
	if err != nil {
		r.notify(ctx, observer.LoadEvent{
			EventType:      observer.ImageFetchFailed,
			Location:       loc.Raw,
			ProcessingTime: time.Since(start),
			ErrorType:      string(apperrors.TypeOf(err)),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}
	r.notify(ctx, observer.LoadEvent{
		EventType:      observer.ImageFetched,
		Location:       loc.Raw,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata:       map[string]interface{}{"bytes": len(data)},
	})

	return r.loader.LoadBytes(data, loc.Raw)
}

// resolveLocal expands ~ and, when a root is set, makes path absolute
// under it and rejects anything that escapes, lexically or through a
// symlink
func (r *imageRepository) resolveLocal(path string) (string, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", apperrors.NewValidationError("cannot expand home directory", err)
	}
	if r.localRoot == "" {
		return filepath.Clean(expanded), nil
	}

	if !filepath.IsAbs(expanded) {
		expanded = filepath.Join(r.localRoot, expanded)
	}
	expanded = filepath.Clean(expanded)
	if !within(r.localRoot, expanded) {
		return "", apperrors.NewValidationError("path is outside the local root", ErrOutsideRoot)
	}

	resolved, err := filepath.EvalSymlinks(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// nothing to follow; the loader reports the missing file
			return expanded, nil
		}
		return "", apperrors.NewValidationError("cannot resolve local path", err)
	}
	if !within(r.realRoot, resolved) {
		return "", apperrors.NewValidationError("path is outside the local root", ErrOutsideRoot)
	}
	return resolved, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

func (r *imageRepository) notify(ctx context.Context, event observer.LoadEvent) {
	if r.events != nil {
		r.events.NotifyObservers(ctx, event)
	}
}
