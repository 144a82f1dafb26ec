package cloudwatch

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// PutMetricData accepts at most 1000 datums per call.
const maxMetricsPerRequest = 1000

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsPublisherConfig configures the summary metrics sink.
type MetricsPublisherConfig struct {
	Namespace       string
	Region          string
	Endpoint        string // LocalStack override
	AccessKeyID     string
	SecretAccessKey string

	// DefaultDimensions are attached to every datum, e.g. Service=fastqc-analyzer.
	DefaultDimensions map[string]string
	BufferSize        int
	FlushInterval     time.Duration
	// StorageResolution is 1 (high resolution) or 60 seconds.
	StorageResolution int32
}

// MetricsPublisher pushes per-analysis summary samples (quality, GC, reads...) to CloudWatch.
type MetricsPublisher struct {
	client            putMetricDataAPI
	namespace         string
	defaultDimensions []types.Dimension
	storageResolution int32
	logger            *logger.Logger

	batch *batcher[types.MetricDatum]
}

// NewMetricsPublisher validates cfg, builds the AWS client and starts periodic flushing.
func NewMetricsPublisher(ctx context.Context, cfg MetricsPublisherConfig, log *logger.Logger) (*MetricsPublisher, error) {
	if cfg.Namespace == "" {
		return nil, errors.New("namespace is required")
	}
	if cfg.Region == "" {
		return nil, errors.New("region is required")
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 10 * time.Second
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newMetricsPublisher(cloudwatch.NewFromConfig(awsCfg), cfg, log)
	p.batch.start(cfg.FlushInterval, func(err error) {
		// буфер сохраняется до следующего тика
		p.logger.Warn("Failed to flush CloudWatch metrics", "error", err.Error())
	})
	return p, nil
}

func newMetricsPublisher(client putMetricDataAPI, cfg MetricsPublisherConfig, log *logger.Logger) *MetricsPublisher {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 100
	}
	if cfg.StorageResolution != 1 {
		cfg.StorageResolution = 60
	}

	p := &MetricsPublisher{
		client:            client,
		namespace:         cfg.Namespace,
		defaultDimensions: dimensions(cfg.DefaultDimensions),
		storageResolution: cfg.StorageResolution,
		logger:            log,
	}
	p.batch = newBatcher(cfg.BufferSize, p.put)
	return p
}

// PublishBatch buffers samples; a full buffer is sent synchronously.
func (p *MetricsPublisher) PublishBatch(ctx context.Context, samples []port.MetricSample) error {
	data := make([]types.MetricDatum, 0, len(samples))
	for _, sample := range samples {
		data = append(data, p.convertToDatum(sample))
	}
	return p.batch.add(ctx, data...)
}

// PublishSingle bypasses the buffer.
func (p *MetricsPublisher) PublishSingle(ctx context.Context, sample port.MetricSample) error {
	if sample.Name == "" {
		return errors.New("metric name is required")
	}
	return p.put(ctx, []types.MetricDatum{p.convertToDatum(sample)})
}

func (p *MetricsPublisher) Flush(ctx context.Context) error {
	return p.batch.flush(ctx)
}

// Close stops the flush loop and sends what is left.
func (p *MetricsPublisher) Close(ctx context.Context) error {
	return p.batch.close(ctx)
}

func (p *MetricsPublisher) put(ctx context.Context, data []types.MetricDatum) error {
	for chunk := range slices.Chunk(data, maxMetricsPerRequest) {
		err := withRetry(ctx, func() (bool, error) {
			_, err := p.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
				Namespace:  aws.String(p.namespace),
				MetricData: chunk,
			})
			return false, err
		})
		if err != nil {
			return fmt.Errorf("failed to put metric data: %w", err)
		}
	}
	return nil
}

func (p *MetricsPublisher) convertToDatum(sample port.MetricSample) types.MetricDatum {
	timestamp := sample.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	return types.MetricDatum{
		MetricName:        aws.String(sample.Name),
		Value:             aws.Float64(sample.Value),
		Unit:              mapUnit(sample.Unit),
		Timestamp:         aws.Time(timestamp),
		Dimensions:        append(slices.Clone(p.defaultDimensions), dimensions(sample.Dimensions)...),
		StorageResolution: aws.Int32(p.storageResolution),
	}
}

func dimensions(values map[string]string) []types.Dimension {
	out := make([]types.Dimension, 0, len(values))
	for name, value := range values {
		out = append(out, types.Dimension{Name: aws.String(name), Value: aws.String(value)})
	}
	return out
}

// mapUnit translates units used by MetricSample. Phred scores and ratios have no CloudWatch unit.
func mapUnit(unit string) types.StandardUnit {
	switch unit {
	case "%":
		return types.StandardUnitPercent
	case "bytes":
		return types.StandardUnitBytes
	case "ms":
		return types.StandardUnitMilliseconds
	case "s":
		return types.StandardUnitSeconds
	case "count":
		return types.StandardUnitCount
	default:
		return types.StandardUnitNone
	}
}
