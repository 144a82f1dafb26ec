package port

import (
	"context"
	"time"
)

// MetricSample is one data point exported to an external metrics backend.
type MetricSample struct {
	Name       string
	Value      float64
	Unit       string
	Dimensions map[string]string
	Timestamp  time.Time
}

// MetricsPublisher defines the interface for publishing analysis summary metrics.
type MetricsPublisher interface {
	// PublishBatch buffers samples; implementations handle backend batch limits.
	PublishBatch(ctx context.Context, samples []MetricSample) error

	// PublishSingle publishes one sample immediately.
	PublishSingle(ctx context.Context, sample MetricSample) error

	// Flush forces publication of buffered samples.
	Flush(ctx context.Context) error
}
