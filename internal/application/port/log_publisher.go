package port

import (
	"context"

	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// LogEntry is the structured log record produced by pkg/logger.
type LogEntry = logger.Entry

// LogPublisher ships application logs to an external observability platform.
// It satisfies logger.Publisher so it can be attached with Logger.SetLogPublisher.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error

	// PublishBatch sends multiple entries in a single operation.
	// Implementations handle batching constraints (CloudWatch accepts 10,000 events per request).
	PublishBatch(ctx context.Context, entries []LogEntry) error

	// Flush forces publication of buffered entries; call it during graceful shutdown.
	Flush(ctx context.Context) error
}
