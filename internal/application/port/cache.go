package port

import "context"

// Cache defines the interface for caching analysis results and history lookups.
// Values are stored as JSON; Get returns an error on miss.
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}) error
	Delete(ctx context.Context, key string) error
	// DeletePattern removes all keys matching a glob pattern such as "analysis:*".
	DeletePattern(ctx context.Context, pattern string) error
	Close() error
}
