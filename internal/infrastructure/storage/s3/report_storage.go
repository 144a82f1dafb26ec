package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
)

// URLMode selects how read URLs for archived reports are produced.
type URLMode string

const (
	URLModePresigned URLMode = "presigned"
	URLModePublic    URLMode = "public"
)

const (
	defaultListLimit = 24
	maxListLimit     = 200
)

type Config struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	// UsePathStyle is needed for MinIO and LocalStack.
	UsePathStyle bool
	URLMode      URLMode
	PresignedTTL time.Duration
}

type objectAPI interface {
	s3.ListObjectsV2APIClient
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	HeadBucket(ctx context.Context, params *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// ReportStorage archives raw FastQC/MultiQC uploads in an S3-compatible bucket.
// Keys follow <prefix>/<analysis id>/<yyyy/mm/dd>/<NN>_<file name>.
type ReportStorage struct {
	client  objectAPI
	presign presignAPI
	cfg     Config
}

func normalizeConfig(cfg Config) (Config, error) {
	cfg.Bucket = strings.TrimSpace(cfg.Bucket)
	cfg.AccessKeyID = strings.TrimSpace(cfg.AccessKeyID)
	cfg.SecretAccessKey = strings.TrimSpace(cfg.SecretAccessKey)
	cfg.Region = strings.TrimSpace(cfg.Region)

	switch {
	case cfg.Bucket == "":
		return cfg, errors.New("s3 bucket is required")
	case (cfg.AccessKeyID == "") != (cfg.SecretAccessKey == ""):
		return cfg, errors.New("both s3 access key id and secret are required for static credentials")
	}

	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	switch cfg.URLMode {
	case "":
		cfg.URLMode = URLModePresigned
	case URLModePresigned, URLModePublic:
	default:
		return cfg, fmt.Errorf("unsupported s3 url mode: %s", cfg.URLMode)
	}

	cfg.Endpoint = strings.TrimRight(strings.TrimSpace(cfg.Endpoint), "/")
	if cfg.URLMode == URLModePublic && cfg.Endpoint == "" {
		cfg.Endpoint = "https://s3." + cfg.Region + ".amazonaws.com"
	}
	if cfg.PresignedTTL <= 0 {
		cfg.PresignedTTL = 15 * time.Minute
	}
	return cfg, nil
}

func NewReportStorage(ctx context.Context, cfg Config) (*ReportStorage, error) {
	cfg, err := normalizeConfig(cfg)
	if err != nil {
		return nil, err
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" {
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return newReportStorage(client, s3.NewPresignClient(client), cfg), nil
}

func newReportStorage(client objectAPI, presign presignAPI, cfg Config) *ReportStorage {
	return &ReportStorage{client: client, presign: presign, cfg: cfg}
}

// PutObject stores one report. The download name drops the NN_ ordering prefix.
func (s *ReportStorage) PutObject(ctx context.Context, key, contentType string, body []byte) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("object key is required")
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(s.cfg.Bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader(body),
		ContentType:        aws.String(contentType),
		ContentLength:      aws.Int64(int64(len(body))),
		ContentDisposition: aws.String(contentDisposition(key)),
		ChecksumAlgorithm:  types.ChecksumAlgorithmSha256,
	})
	if err != nil {
		return "", fmt.Errorf("put object %s failed: %w", key, err)
	}

	return s.GetObjectURL(ctx, key)
}

// ListObjects returns up to limit objects under prefix ordered by key, i.e. by file index.
func (s *ReportStorage) ListObjects(ctx context.Context, prefix string, limit int) ([]port.StoredObject, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, errors.New("prefix is required")
	}
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:  aws.String(s.cfg.Bucket),
		Prefix:  aws.String(prefix),
		MaxKeys: aws.Int32(int32(limit)),
	})

	var objects []port.StoredObject
	for paginator.HasMorePages() && len(objects) < limit {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list objects failed: %w", err)
		}
		for _, object := range page.Contents {
			key := strings.TrimSpace(aws.ToString(object.Key))
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			objects = append(objects, port.StoredObject{
				Key:          key,
				SizeBytes:    aws.ToInt64(object.Size),
				LastModified: aws.ToTime(object.LastModified).UTC(),
			})
		}
	}

	slices.SortFunc(objects, func(a, b port.StoredObject) int { return strings.Compare(a.Key, b.Key) })
	if len(objects) > limit {
		objects = objects[:limit]
	}

	// URL генерируем только для возвращаемых объектов
	for i := range objects {
		if readURL, err := s.GetObjectURL(ctx, objects[i].Key); err == nil {
			objects[i].URL = readURL
		}
	}
	return objects, nil
}

func (s *ReportStorage) GetObjectURL(ctx context.Context, key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", errors.New("object key is required")
	}

	if s.cfg.URLMode == URLModePublic {
		return s.publicURL(key), nil
	}

	request, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(s.cfg.PresignedTTL))
	if err != nil {
		return "", fmt.Errorf("presign failed: %w", err)
	}
	return request.URL, nil
}

// Ping checks that the bucket exists and is reachable.
func (s *ReportStorage) Ping(ctx context.Context) error {
	if _, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)}); err != nil {
		return fmt.Errorf("head bucket %s failed: %w", s.cfg.Bucket, err)
	}
	return nil
}

func (s *ReportStorage) publicURL(key string) string {
	escapedKey := strings.ReplaceAll(url.PathEscape(key), "%2F", "/")
	if s.cfg.UsePathStyle {
		return s.cfg.Endpoint + "/" + s.cfg.Bucket + "/" + escapedKey
	}
	host := strings.TrimPrefix(strings.TrimPrefix(s.cfg.Endpoint, "https://"), "http://")
	return "https://" + s.cfg.Bucket + "." + host + "/" + escapedKey
}

// contentDisposition turns "reports/<id>/2026/03/01/00_sample_fastqc.html" into
// attachment; filename=sample_fastqc.html.
func contentDisposition(key string) string {
	name := path.Base(key)
	if prefix, rest, ok := strings.Cut(name, "_"); ok && len(prefix) == 2 && rest != "" {
		name = rest
	}
	return mime.FormatMediaType("attachment", map[string]string{"filename": name})
}
