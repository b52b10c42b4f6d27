package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go-image-loader/internal/analyzer"
	apperrors "go-image-loader/internal/errors"
	"go-image-loader/internal/observer"
	"go-image-loader/internal/repository"
	"go-image-loader/pkg/models"
)

// ImageLoadService decodes images on behalf of API callers
type ImageLoadService interface {
	LoadImage(ctx context.Context, request models.LoadRequest) (*models.LoadResponse, error)
	ValidateLocation(location string) error
}

type imageLoadService struct {
	imageRepo           repository.ImageRepository
	stats               analyzer.StatsCalculator
	events              observer.Subject
	maxPixelsInResponse int
}

// NewImageLoadService creates a new image load service. events may be nil.
// maxPixelsInResponse caps the number of samples returned inline; zero
// disables inline pixels entirely.
func NewImageLoadService(
	imageRepository repository.ImageRepository,
	stats analyzer.StatsCalculator,
	events observer.Subject,
	maxPixelsInResponse int,
) ImageLoadService {
	return &imageLoadService{
		imageRepo:           imageRepository,
		stats:               stats,
		events:              events,
		maxPixelsInResponse: maxPixelsInResponse,
	}
}

// LoadImage decodes the image named in request and describes it. The
// decoded buffer is released before returning.
func (s *imageLoadService) LoadImage(ctx context.Context, request models.LoadRequest) (*models.LoadResponse, error) {
	start := time.Now()
	s.notify(ctx, observer.LoadEvent{EventType: observer.LoadStarted, Location: request.Location})

	response, err := s.load(ctx, request, start)
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.NewInternalError("failed to load image", err)
		}
		s.notify(ctx, observer.LoadEvent{
			EventType:      observer.LoadFailed,
			Location:       request.Location,
			ProcessingTime: time.Since(start),
			ErrorType:      string(apperrors.TypeOf(err)),
			ErrorMessage:   err.Error(),
		})
		return nil, err
	}

	s.notify(ctx, observer.LoadEvent{
		EventType:      observer.LoadCompleted,
		Location:       request.Location,
		ProcessingTime: time.Since(start),
		Success:        true,
		Metadata: map[string]interface{}{
			"width":    response.Width,
			"height":   response.Height,
			"channels": response.Channels,
			"format":   response.Format,
		},
	})
	return response, nil
}

func (s *imageLoadService) load(ctx context.Context, request models.LoadRequest, start time.Time) (*models.LoadResponse, error) {
	img, err := s.imageRepo.LoadImage(ctx, request.Location)
	if err != nil {
		return nil, err
	}
	defer img.Release()

	response := &models.LoadResponse{
		Location: request.Location,
		Width:    img.Width,
		Height:   img.Height,
		Channels: img.Channels,
		Format:   img.Format,
		MIME:     img.MIME,
	}

	if request.IncludePixels {
		if n := len(img.Pixels); n > s.maxPixelsInResponse {
			return nil, apperrors.NewValidationError(
				fmt.Sprintf("image has %d samples, inline pixel limit is %d", n, s.maxPixelsInResponse), nil)
		}
		response.Pixels = make(models.Samples, len(img.Pixels))
		copy(response.Pixels, img.Pixels)
	}

	if request.IncludeStats && s.stats != nil {
		response.Stats = s.stats.CalculateChannelStats(img.Pixels, img.Channels)
	}

	response.Timestamp = time.Now().UTC().Format(time.RFC3339)
	response.ProcessingTimeSec = time.Since(start).Seconds()
	return response, nil
}

// ValidateLocation checks a location without loading it
func (s *imageLoadService) ValidateLocation(location string) error {
	_, err := s.imageRepo.ValidateLocation(location)
	return err
}

func (s *imageLoadService) notify(ctx context.Context, event observer.LoadEvent) {
	if s.events != nil {
		s.events.NotifyObservers(ctx, event)
	}
}
