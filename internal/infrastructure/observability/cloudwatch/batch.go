package cloudwatch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

const (
	maxRetries     = 3
	initialBackoff = 100 * time.Millisecond
	flushTimeout   = 30 * time.Second
)

// batcher buffers items and hands them to send when full, on every tick, and on close.
// send runs under the batcher lock; the buffer is kept when it fails.
type batcher[T any] struct {
	mu    sync.Mutex
	items []T
	limit int
	send  func(ctx context.Context, items []T) error

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

func newBatcher[T any](limit int, send func(ctx context.Context, items []T) error) *batcher[T] {
	return &batcher[T]{
		items: make([]T, 0, limit),
		limit: limit,
		send:  send,
		stop:  make(chan struct{}),
	}
}

func (b *batcher[T]) add(ctx context.Context, items ...T) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, item := range items {
		b.items = append(b.items, item)
		if len(b.items) >= b.limit {
			if err := b.flushLocked(ctx); err != nil {
				return fmt.Errorf("failed to flush buffer: %w", err)
			}
		}
	}
	return nil
}

func (b *batcher[T]) flush(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.flushLocked(ctx)
}

func (b *batcher[T]) flushLocked(ctx context.Context) error {
	if len(b.items) == 0 {
		return nil
	}
	if err := b.send(ctx, b.items); err != nil {
		return err
	}
	b.items = b.items[:0]
	return nil
}

// start flushes every interval until close; onError sees failed background flushes.
func (b *batcher[T]) start(interval time.Duration, onError func(error)) {
	b.done = make(chan struct{})
	go func() {
		defer close(b.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
				if err := b.flush(ctx); err != nil && onError != nil {
					onError(err)
				}
				cancel()
			case <-b.stop:
				return
			}
		}
	}()
}

func (b *batcher[T]) close(ctx context.Context) error {
	b.closeOnce.Do(func() {
		close(b.stop)
		if b.done != nil {
			<-b.done
		}
	})
	return b.flush(ctx)
}

// withRetry calls put up to maxRetries times with exponential backoff.
// put reports retryNow to repeat at once, e.g. after fixing a sequence token.
func withRetry(ctx context.Context, put func() (retryNow bool, err error)) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 1; attempt <= maxRetries; attempt++ {
		retryNow, err := put()
		if err == nil {
			return nil
		}
		lastErr = err
		if retryNow || attempt == maxRetries {
			continue
		}

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

// buildAWSConfig loads the default chain, with static keys and endpoint override for LocalStack.
func buildAWSConfig(ctx context.Context, region, endpoint, accessKeyID, secretAccessKey string) (aws.Config, error) {
	optFns := []func(*config.LoadOptions) error{config.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		optFns = append(optFns, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}

	cfg, err := config.LoadDefaultConfig(ctx, optFns...)
	if err != nil {
		return aws.Config{}, err
	}
	if endpoint != "" {
		cfg.BaseEndpoint = aws.String(endpoint)
	}
	return cfg, nil
}
