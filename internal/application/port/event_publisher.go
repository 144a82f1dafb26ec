package port

import (
	"context"
)

// Subjects used for analysis history events.
const (
	SubjectAnalysisCompleted = "fastqc.analysis.completed"
	SubjectAnalysisDeleted   = "fastqc.analysis.deleted"
	SubjectHistoryCleared    = "fastqc.history.cleared"
)

// EventPublisher defines the interface for publishing events to a message broker
type EventPublisher interface {
	// PublishEvent publishes an event to the specified subject
	PublishEvent(ctx context.Context, subject string, event interface{}) error

	// Close closes the connection to the message broker
	Close() error
}
