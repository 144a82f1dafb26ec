package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
)

// PutLogEvents limits.
const (
	maxLogEventsPerRequest = 10000
	maxLogBatchBytes       = 1048576
	maxLogEventSize        = 256000
	// Each event is billed 26 bytes on top of its message.
	logEventOverhead = 26
)

type logsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisherConfig configures the log sink.
type LogsPublisherConfig struct {
	LogGroupName    string
	LogStreamName   string
	Region          string
	Endpoint        string // LocalStack override
	AccessKeyID     string
	SecretAccessKey string
	BufferSize      int
	FlushInterval   time.Duration
	// AutoCreate creates the group and stream on startup, ignoring "already exists".
	AutoCreate bool
	// Service is stamped on every event.
	Service string
}

// LogsPublisher ships pkg/logger entries to CloudWatch Logs as JSON lines.
// It is attached to the logger it would otherwise report through, so failures are only counted.
type LogsPublisher struct {
	client        logsAPI
	logGroupName  string
	logStreamName string
	service       string

	// guarded by the batcher lock
	sequenceToken *string

	batch         *batcher[port.LogEntry]
	failedFlushes atomic.Int64
}

func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	switch {
	case cfg.LogGroupName == "":
		return nil, errors.New("log group name is required")
	case cfg.LogStreamName == "":
		return nil, errors.New("log stream name is required")
	case cfg.Region == "":
		return nil, errors.New("region is required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newLogsPublisher(cloudwatchlogs.NewFromConfig(awsCfg), cfg)
	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, err
		}
	}

	p.batch.start(cfg.FlushInterval, func(error) { p.failedFlushes.Add(1) })
	return p, nil
}

func newLogsPublisher(client logsAPI, cfg LogsPublisherConfig) *LogsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 50
	}
	p := &LogsPublisher{
		client:        client,
		logGroupName:  cfg.LogGroupName,
		logStreamName: cfg.LogStreamName,
		service:       cfg.Service,
	}
	p.batch = newBatcher(cfg.BufferSize, p.put)
	return p
}

// Publish implements logger.Publisher.
func (p *LogsPublisher) Publish(ctx context.Context, entry port.LogEntry) error {
	return p.batch.add(ctx, entry)
}

func (p *LogsPublisher) PublishBatch(ctx context.Context, entries []port.LogEntry) error {
	return p.batch.add(ctx, entries...)
}

func (p *LogsPublisher) Flush(ctx context.Context) error {
	return p.batch.flush(ctx)
}

// Close stops the flush loop and sends what is left.
func (p *LogsPublisher) Close(ctx context.Context) error {
	return p.batch.close(ctx)
}

// FailedFlushes reports how many background flushes failed since startup.
func (p *LogsPublisher) FailedFlushes() int64 {
	return p.failedFlushes.Load()
}

// put sends entries in chronological order, split by the request count and byte limits.
func (p *LogsPublisher) put(ctx context.Context, entries []port.LogEntry) error {
	slices.SortStableFunc(entries, func(a, b port.LogEntry) int {
		return a.Timestamp.Compare(b.Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(entries))
	for _, entry := range entries {
		event, err := p.convertToLogEvent(entry)
		if err != nil {
			// одна битая запись не должна блокировать остальные
			continue
		}
		events = append(events, event)
	}

	for _, batch := range splitLogEvents(events) {
		if err := p.putWithSequenceToken(ctx, batch); err != nil {
			return fmt.Errorf("failed to put log events: %w", err)
		}
	}
	return nil
}

func (p *LogsPublisher) putWithSequenceToken(ctx context.Context, events []types.InputLogEvent) error {
	return withRetry(ctx, func() (bool, error) {
		out, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.logGroupName),
			LogStreamName: aws.String(p.logStreamName),
			LogEvents:     events,
			SequenceToken: p.sequenceToken,
		})
		if err == nil {
			p.sequenceToken = out.NextSequenceToken
			return false, nil
		}

		var invalidToken *types.InvalidSequenceTokenException
		if errors.As(err, &invalidToken) {
			p.sequenceToken = invalidToken.ExpectedSequenceToken
			return true, err
		}
		return false, err
	})
}

func splitLogEvents(events []types.InputLogEvent) [][]types.InputLogEvent {
	var batches [][]types.InputLogEvent
	start, size := 0, 0
	for i, event := range events {
		eventSize := len(aws.ToString(event.Message)) + logEventOverhead
		if i > start && (i-start >= maxLogEventsPerRequest || size+eventSize > maxLogBatchBytes) {
			batches = append(batches, events[start:i])
			start, size = i, 0
		}
		size += eventSize
	}
	if start < len(events) {
		batches = append(batches, events[start:])
	}
	return batches
}

func (p *LogsPublisher) convertToLogEvent(entry port.LogEntry) (types.InputLogEvent, error) {
	record := struct {
		Timestamp string                 `json:"timestamp"`
		Level     string                 `json:"level"`
		Message   string                 `json:"message"`
		Service   string                 `json:"service,omitempty"`
		Fields    map[string]interface{} `json:"fields,omitempty"`
	}{
		Timestamp: entry.Timestamp.Format(time.RFC3339Nano),
		Level:     entry.Level,
		Message:   entry.Message,
		Service:   p.service,
		Fields:    entry.Fields,
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(raw)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var exists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.logGroupName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log group %s: %w", p.logGroupName, err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.logGroupName),
		LogStreamName: aws.String(p.logStreamName),
	})
	if err != nil && !errors.As(err, &exists) {
		return fmt.Errorf("failed to create log stream %s: %w", p.logStreamName, err)
	}
	return nil
}
