package container

import (
	"fmt"
	"net/http"

	"go-image-loader/internal/analyzer"
	"go-image-loader/internal/config"
	"go-image-loader/internal/factory"
	"go-image-loader/internal/loader"
	"go-image-loader/internal/logger"
	"go-image-loader/internal/observer"
	"go-image-loader/internal/repository"
	"go-image-loader/internal/service"
	"go-image-loader/internal/transport"
)

// Container holds all application dependencies
type Container struct {
	config           *config.Config
	loader           *loader.Loader
	stats            analyzer.StatsCalculator
	events           *observer.EventPublisher
	metrics          *observer.MetricsObserver
	imageRepository  repository.ImageRepository
	imageLoadService service.ImageLoadService
	handler          http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.SetLevel(cfg.LogLevel)

	components := factory.NewComponentFactory(factory.StorageOptions{
		FetchTimeout:  cfg.ImageFetchTimeout,
		MaxImageBytes: cfg.MaxImageBytes,
		AzureAccount:  cfg.AzureStorageAccount,
		AzureKey:      cfg.AzureStorageKey,
	})

	l, err := components.LoaderFactory.CreateLoader(cfg.ImageBackend, cfg.MaxImageSamples)
	if err != nil {
		return nil, fmt.Errorf("failed to create loader: %w", err)
	}

	events := observer.NewEventPublisher()
	metrics := observer.NewMetricsObserver()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(metrics)

	repoOpts := repository.Options{
		AllowLocal: cfg.AllowLocalPaths,
		LocalRoot:  cfg.LocalRoot,
		Events:     events,
	}
	if repoOpts.HTTP, err = components.StorageFactory.CreateStorage(factory.HTTPStorage); err != nil {
		return nil, fmt.Errorf("failed to create http storage: %w", err)
	}
	if cfg.AzureEnabled() {
		if repoOpts.Blob, err = components.StorageFactory.CreateStorage(factory.AzureStorage); err != nil {
			return nil, fmt.Errorf("failed to create azure storage: %w", err)
		}
	}

	imageRepository, err := repository.NewImageRepository(l, repoOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create image repository: %w", err)
	}

	stats := analyzer.NewStatsCalculator(0)
	imageLoadService := service.NewImageLoadService(imageRepository, stats, events, cfg.MaxPixelsInResponse)
	handler := transport.NewHandler(imageLoadService, transport.MetricsSource{Events: metrics, Loader: l}, cfg)

	return &Container{
		config:           cfg,
		loader:           l,
		stats:            stats,
		events:           events,
		metrics:          metrics,
		imageRepository:  imageRepository,
		imageLoadService: imageLoadService,
		handler:          handler,
	}, nil
}

// Handler returns the HTTP handler
func (c *Container) Handler() http.Handler {
	return c.handler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}

// Close releases background workers
func (c *Container) Close() error {
	return c.stats.Close()
}
