package factory

import (
	"fmt"
	"time"

	"go-image-loader/internal/imageio"
	"go-image-loader/internal/loader"
	"go-image-loader/internal/storage"
)

// StorageType represents different types of storage backends
type StorageType string

const (
	// HTTPStorage for HTTP-based image fetching
	HTTPStorage StorageType = "http"
	// AzureStorage for Azure blob storage
	AzureStorage StorageType = "azure"
)

// StorageOptions carries the settings storage backends need
type StorageOptions struct {
	FetchTimeout  time.Duration
	MaxImageBytes int64
	AzureAccount  string
	AzureKey      string
}

// StorageFactory creates storage implementations
type StorageFactory interface {
	CreateStorage(storageType StorageType) (storage.Fetcher, error)
}

// storageFactory implements StorageFactory
type storageFactory struct {
	opts StorageOptions
}

// NewStorageFactory creates a new storage factory
func NewStorageFactory(opts StorageOptions) StorageFactory {
	return &storageFactory{opts: opts}
}

// CreateStorage creates a storage implementation based on the specified type
func (f *storageFactory) CreateStorage(storageType StorageType) (storage.Fetcher, error) {
	switch storageType {
	case HTTPStorage:
		return storage.NewHTTPFetcher(
			storage.WithTimeout(f.opts.FetchTimeout),
			storage.WithMaxBytes(f.opts.MaxImageBytes),
		), nil
	case AzureStorage:
		return storage.NewAzureFetcher(f.opts.AzureAccount, f.opts.AzureKey, f.opts.MaxImageBytes)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", storageType)
	}
}

// LoaderFactory creates loaders bound to an imageio backend
type LoaderFactory interface {
	CreateLoader(backend string, maxSamples int) (*loader.Loader, error)
}

type loaderFactory struct{}

// NewLoaderFactory creates a new loader factory
func NewLoaderFactory() LoaderFactory {
	return &loaderFactory{}
}

// CreateLoader looks up the named backend. An empty name selects the
// default backend.
func (f *loaderFactory) CreateLoader(backend string, maxSamples int) (*loader.Loader, error) {
	opener, err := imageio.Backend(backend)
	if err != nil {
		return nil, err
	}
	return loader.New(opener, loader.WithMaxSamples(maxSamples)), nil
}

// ComponentFactory combines all factories
type ComponentFactory struct {
	LoaderFactory  LoaderFactory
	StorageFactory StorageFactory
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(opts StorageOptions) *ComponentFactory {
	return &ComponentFactory{
		LoaderFactory:  NewLoaderFactory(),
		StorageFactory: NewStorageFactory(opts),
	}
}
