package observer

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// LoadEvent represents an image load event
type LoadEvent struct {
	EventType      EventType              `json:"event_type"`
	Timestamp      time.Time              `json:"timestamp"`
	Location       string                 `json:"location"`
	ProcessingTime time.Duration          `json:"processing_time"`
	Success        bool                   `json:"success"`
	ErrorType      string                 `json:"error_type,omitempty"`
	ErrorMessage   string                 `json:"error_message,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

// EventType represents the type of load event
type EventType string

const (
	// LoadStarted when a load request begins
	LoadStarted EventType = "load_started"
	// LoadCompleted when an image was decoded
	LoadCompleted EventType = "load_completed"
	// LoadFailed when a load request fails
	LoadFailed EventType = "load_failed"
	// ImageFetched when remote image bytes were downloaded
	ImageFetched EventType = "image_fetched"
	// ImageFetchFailed when a remote download fails
	ImageFetchFailed EventType = "image_fetch_failed"
)

// Observer defines the interface for event observers
type Observer interface {
	OnEvent(ctx context.Context, event LoadEvent)
	GetObserverName() string
}

// Subject defines the interface for event publishers
type Subject interface {
	Subscribe(observer Observer)
	Unsubscribe(observer Observer)
	NotifyObservers(ctx context.Context, event LoadEvent)
}

// LoggingObserver logs load events
type LoggingObserver struct {
	logger *logrus.Logger
}

// NewLoggingObserver creates a new logging observer
func NewLoggingObserver(logger *logrus.Logger) Observer {
	return &LoggingObserver{
		logger: logger,
	}
}

// OnEvent handles load events by logging them
func (o *LoggingObserver) OnEvent(ctx context.Context, event LoadEvent) {
	fields := logrus.Fields{
		"event_type":      event.EventType,
		"location":        event.Location,
		"processing_time": event.ProcessingTime,
		"success":         event.Success,
	}

	if event.ErrorMessage != "" {
		fields["error"] = event.ErrorMessage
		fields["error_type"] = event.ErrorType
	}

	for k, v := range event.Metadata {
		fields[k] = v
	}

	entry := o.logger.WithFields(fields)
	switch event.EventType {
	case LoadStarted:
		entry.Debug("Image load started")
	case LoadCompleted:
		entry.Info("Image load completed")
	case LoadFailed:
		entry.Error("Image load failed")
	case ImageFetched:
		entry.Debug("Image fetched successfully")
	case ImageFetchFailed:
		entry.Error("Image fetch failed")
	default:
		entry.Info("Load event occurred")
	}
}

// GetObserverName returns the observer name
func (o *LoggingObserver) GetObserverName() string {
	return "logging_observer"
}

// Metrics is a snapshot of MetricsObserver counters
type Metrics struct {
	TotalLoads          int64            `json:"total_loads"`
	SuccessfulLoads     int64            `json:"successful_loads"`
	FailedLoads         int64            `json:"failed_loads"`
	FailuresByType      map[string]int64 `json:"failures_by_type"`
	ImagesFetched       int64            `json:"images_fetched"`
	FetchFailures       int64            `json:"fetch_failures"`
	BytesFetched        int64            `json:"bytes_fetched"`
	TotalProcessingTime time.Duration    `json:"total_processing_time"`
	AvgProcessingTime   time.Duration    `json:"avg_processing_time"`
}

// MetricsObserver collects metrics from load events
type MetricsObserver struct {
	mu                  sync.RWMutex
	totalLoads          int64
	successfulLoads     int64
	failedLoads         int64
	failuresByType      map[string]int64
	imagesFetched       int64
	fetchFailures       int64
	bytesFetched        int64
	totalProcessingTime time.Duration
}

// NewMetricsObserver creates a new metrics observer
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{failuresByType: make(map[string]int64)}
}

// OnEvent handles load events by collecting metrics
func (o *MetricsObserver) OnEvent(ctx context.Context, event LoadEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch event.EventType {
	case LoadStarted:
		o.totalLoads++
	case LoadCompleted:
		o.successfulLoads++
		o.totalProcessingTime += event.ProcessingTime
	case LoadFailed:
		o.failedLoads++
		if event.ErrorType != "" {
			o.failuresByType[event.ErrorType]++
		}
	case ImageFetched:
		o.imagesFetched++
		if n, ok := event.Metadata["bytes"].(int); ok {
			o.bytesFetched += int64(n)
		}
	case ImageFetchFailed:
		o.fetchFailures++
	}
}

// GetObserverName returns the observer name
func (o *MetricsObserver) GetObserverName() string {
	return "metrics_observer"
}

// GetMetrics returns current metrics
func (o *MetricsObserver) GetMetrics() Metrics {
	o.mu.RLock()
	defer o.mu.RUnlock()

	avgProcessingTime := time.Duration(0)
	if o.successfulLoads > 0 {
		avgProcessingTime = o.totalProcessingTime / time.Duration(o.successfulLoads)
	}

	byType := make(map[string]int64, len(o.failuresByType))
	for k, v := range o.failuresByType {
		byType[k] = v
	}

	return Metrics{
		TotalLoads:          o.totalLoads,
		SuccessfulLoads:     o.successfulLoads,
		FailedLoads:         o.failedLoads,
		FailuresByType:      byType,
		ImagesFetched:       o.imagesFetched,
		FetchFailures:       o.fetchFailures,
		BytesFetched:        o.bytesFetched,
		TotalProcessingTime: o.totalProcessingTime,
		AvgProcessingTime:   avgProcessingTime,
	}
}

// EventPublisher implements the Subject interface
type EventPublisher struct {
	mu        sync.RWMutex
	observers []Observer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher() *EventPublisher {
	return &EventPublisher{
		observers: make([]Observer, 0),
	}
}

// Subscribe adds an observer
func (p *EventPublisher) Subscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.observers = append(p.observers, observer)
}

// Unsubscribe removes an observer
func (p *EventPublisher) Unsubscribe(observer Observer) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, obs := range p.observers {
		if obs.GetObserverName() == observer.GetObserverName() {
			p.observers = append(p.observers[:i], p.observers[i+1:]...)
			break
		}
	}
}

// NotifyObservers delivers event to every observer concurrently and
// returns once all of them have handled it.
func (p *EventPublisher) NotifyObservers(ctx context.Context, event LoadEvent) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	observers := make([]Observer, len(p.observers))
	copy(observers, p.observers)
	p.mu.RUnlock()

	var wg sync.WaitGroup
	for _, observer := range observers {
		wg.Add(1)
		go func(obs Observer) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					logrus.WithField("observer", obs.GetObserverName()).
						WithField("panic", r).
						Error("Observer panicked while handling event")
				}
			}()
			obs.OnEvent(ctx, event)
		}(observer)
	}
	wg.Wait()
}
