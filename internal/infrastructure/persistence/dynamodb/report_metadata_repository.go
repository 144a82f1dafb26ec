package dynamodb

import (
	"context"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
)

const (
	defaultListLimit  = 24
	maxListLimit      = 100
	maxBatchWriteSize = 25
	maxBatchRetries   = 5

	attrPK          = "PK"
	attrSK          = "SK"
	attrAnalysisID  = "analysis_id"
	attrFileIndex   = "file_index"
	attrFileName    = "file_name"
	attrS3Key       = "s3_key"
	attrURL         = "url"
	attrContentType = "content_type"
	attrSizeBytes   = "size_bytes"
	attrUploadedAt  = "uploaded_at"
	attrExpiresAt   = "expires_at"
)

var errInvalidCursor = errors.New("invalid cursor")

type Config struct {
	TableName       string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	StrongReads     bool
	// Retention sets the TTL attribute; zero keeps records forever.
	Retention time.Duration
}

type dynamoAPI interface {
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// ReportMetadataRepository indexes archived reports per analysis.
// One partition ANALYSIS#<id> per analysis, sort key FILE#<index>#KEY#<hash> keeps upload order.
type ReportMetadataRepository struct {
	client      dynamoAPI
	tableName   string
	strongReads bool
	retention   time.Duration
	now         func() time.Time
}

func NewReportMetadataRepository(ctx context.Context, cfg Config) (*ReportMetadataRepository, error) {
	if strings.TrimSpace(cfg.TableName) == "" {
		return nil, errors.New("dynamodb table name is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	loadOptions := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	accessKeyID, secretAccessKey := strings.TrimSpace(cfg.AccessKeyID), strings.TrimSpace(cfg.SecretAccessKey)
	switch {
	case accessKeyID != "" && secretAccessKey != "":
		loadOptions = append(loadOptions, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	case accessKeyID != "" || secretAccessKey != "":
		return nil, errors.New("both dynamodb access key id and secret access key are required for static credentials")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create aws config for dynamodb: %w", err)
	}

	client := dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return newReportMetadataRepository(client, cfg), nil
}

func newReportMetadataRepository(client dynamoAPI, cfg Config) *ReportMetadataRepository {
	return &ReportMetadataRepository{
		client:      client,
		tableName:   strings.TrimSpace(cfg.TableName),
		strongReads: cfg.StrongReads,
		retention:   cfg.Retention,
		now:         time.Now,
	}
}

// PutBatch validates every record before writing any of them.
func (r *ReportMetadataRepository) PutBatch(ctx context.Context, records []port.ReportMetadata) error {
	requests := make([]types.WriteRequest, 0, len(records))
	for _, record := range records {
		item, err := r.newReportItem(record)
		if err != nil {
			return err
		}
		requests = append(requests, types.WriteRequest{PutRequest: &types.PutRequest{Item: item.attributes()}})
	}

	for chunk := range slices.Chunk(requests, maxBatchWriteSize) {
		if err := r.writeBatch(ctx, chunk); err != nil {
			return err
		}
	}
	return nil
}

// ListByAnalysis returns one page in file order. Rows past their TTL are filtered
// out because DynamoDB deletes expired items lazily.
func (r *ReportMetadataRepository) ListByAnalysis(ctx context.Context, query port.ReportListQuery) (port.ReportListPage, error) {
	analysisID := strings.TrimSpace(query.AnalysisID)
	if _, err := uuid.Parse(analysisID); err != nil {
		return port.ReportListPage{}, errors.New("invalid analysis_id")
	}

	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		Limit:                  aws.Int32(int32(limit)),
		ScanIndexForward:       aws.Bool(true),
		ConsistentRead:         aws.Bool(r.strongReads),
		KeyConditionExpression: aws.String("#pk = :pk"),
		ExpressionAttributeNames: map[string]string{
			"#pk": attrPK,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: buildPK(analysisID)},
		},
	}
	if r.retention > 0 {
		input.FilterExpression = aws.String("attribute_not_exists(#exp) OR #exp > :now")
		input.ExpressionAttributeNames["#exp"] = attrExpiresAt
		input.ExpressionAttributeValues[":now"] = numberAttr(r.now().Unix())
	}

	if cursor := strings.TrimSpace(query.Cursor); cursor != "" {
		sk, err := decodeCursor(cursor, analysisID)
		if err != nil {
			return port.ReportListPage{}, err
		}
		input.ExclusiveStartKey = map[string]types.AttributeValue{
			attrPK: &types.AttributeValueMemberS{Value: buildPK(analysisID)},
			attrSK: &types.AttributeValueMemberS{Value: sk},
		}
	}

	output, err := r.client.Query(ctx, input)
	if err != nil {
		return port.ReportListPage{}, fmt.Errorf("dynamodb query failed: %w", err)
	}

	page := port.ReportListPage{Items: make([]port.ReportMetadata, 0, len(output.Items))}
	for _, raw := range output.Items {
		item, err := parseReportItem(raw)
		if err != nil {
			return port.ReportListPage{}, err
		}
		page.Items = append(page.Items, item.metadata())
	}

	if sk, ok := output.LastEvaluatedKey[attrSK].(*types.AttributeValueMemberS); ok {
		page.NextCursor, err = encodeCursor(analysisID, sk.Value)
		if err != nil {
			return port.ReportListPage{}, err
		}
	}
	return page, nil
}

// writeBatch resubmits UnprocessedItems with a linear backoff.
func (r *ReportMetadataRepository) writeBatch(ctx context.Context, requests []types.WriteRequest) error {
	pending := map[string][]types.WriteRequest{r.tableName: requests}

	for attempt := 1; attempt <= maxBatchRetries; attempt++ {
		output, err := r.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: pending})
		if err != nil {
			return fmt.Errorf("dynamodb batch write failed: %w", err)
		}
		if len(output.UnprocessedItems) == 0 {
			return nil
		}

		pending = output.UnprocessedItems
		select {
		case <-time.After(time.Duration(attempt) * 100 * time.Millisecond):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return errors.New("dynamodb batch write has unprocessed items after retries")
}

// reportItem is the stored form of port.ReportMetadata.
type reportItem struct {
	analysisID  string
	fileIndex   int
	fileName    string
	s3Key       string
	url         string
	contentType string
	sizeBytes   int64
	uploadedAt  time.Time
	expiresAt   time.Time
}

func (r *ReportMetadataRepository) newReportItem(record port.ReportMetadata) (reportItem, error) {
	item := reportItem{
		analysisID:  strings.TrimSpace(record.AnalysisID),
		fileIndex:   record.FileIndex,
		fileName:    strings.TrimSpace(record.FileName),
		s3Key:       strings.TrimSpace(record.S3Key),
		url:         strings.TrimSpace(record.URL),
		contentType: strings.TrimSpace(record.ContentType),
		sizeBytes:   record.SizeBytes,
		uploadedAt:  record.UploadedAt.UTC(),
	}

	switch _, err := uuid.Parse(item.analysisID); {
	case err != nil:
		return item, errors.New("invalid analysis_id")
	case item.fileIndex < 0:
		return item, errors.New("file_index must be non-negative")
	case item.s3Key == "":
		return item, errors.New("s3_key is required")
	}

	if item.uploadedAt.IsZero() {
		item.uploadedAt = r.now().UTC()
	}
	if r.retention > 0 {
		item.expiresAt = item.uploadedAt.Add(r.retention)
	}
	return item, nil
}

func (it reportItem) attributes() map[string]types.AttributeValue {
	attrs := map[string]types.AttributeValue{
		attrPK:         &types.AttributeValueMemberS{Value: buildPK(it.analysisID)},
		attrSK:         &types.AttributeValueMemberS{Value: buildSK(it.fileIndex, it.s3Key)},
		attrAnalysisID: &types.AttributeValueMemberS{Value: it.analysisID},
		attrFileIndex:  numberAttr(int64(it.fileIndex)),
		attrS3Key:      &types.AttributeValueMemberS{Value: it.s3Key},
		attrUploadedAt: numberAttr(it.uploadedAt.UnixMilli()),
	}
	for name, value := range map[string]string{
		attrFileName:    it.fileName,
		attrURL:         it.url,
		attrContentType: it.contentType,
	} {
		if value != "" {
			attrs[name] = &types.AttributeValueMemberS{Value: value}
		}
	}
	if it.sizeBytes > 0 {
		attrs[attrSizeBytes] = numberAttr(it.sizeBytes)
	}
	// TTL в секундах эпохи
	if !it.expiresAt.IsZero() {
		attrs[attrExpiresAt] = numberAttr(it.expiresAt.Unix())
	}
	return attrs
}

func parseReportItem(attrs map[string]types.AttributeValue) (reportItem, error) {
	var it reportItem
	var err error

	if it.analysisID, err = requiredString(attrs, attrAnalysisID); err != nil {
		return it, err
	}
	if it.s3Key, err = requiredString(attrs, attrS3Key); err != nil {
		return it, err
	}
	fileIndex, err := requiredNumber(attrs, attrFileIndex)
	if err != nil {
		return it, err
	}
	uploadedAt, err := requiredNumber(attrs, attrUploadedAt)
	if err != nil {
		return it, err
	}

	it.fileIndex = int(fileIndex)
	it.uploadedAt = time.UnixMilli(uploadedAt).UTC()
	it.fileName = optionalString(attrs, attrFileName)
	it.url = optionalString(attrs, attrURL)
	it.contentType = optionalString(attrs, attrContentType)
	it.sizeBytes, _ = requiredNumber(attrs, attrSizeBytes)
	return it, nil
}

func (it reportItem) metadata() port.ReportMetadata {
	return port.ReportMetadata{
		AnalysisID:  it.analysisID,
		FileIndex:   it.fileIndex,
		FileName:    it.fileName,
		S3Key:       it.s3Key,
		URL:         it.url,
		ContentType: it.contentType,
		SizeBytes:   it.sizeBytes,
		UploadedAt:  it.uploadedAt,
	}
}

func buildPK(analysisID string) string {
	return "ANALYSIS#" + analysisID
}

// buildSK: the key hash keeps two uploads with the same index distinct.
func buildSK(fileIndex int, s3Key string) string {
	sum := sha1.Sum([]byte(s3Key))
	return fmt.Sprintf("FILE#%04d#KEY#%s", fileIndex, hex.EncodeToString(sum[:8]))
}

func numberAttr(v int64) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(v, 10)}
}

// cursor binds the last sort key to the analysis it was issued for.
type cursor struct {
	AnalysisID string `json:"a"`
	SortKey    string `json:"sk"`
}

func encodeCursor(analysisID, sortKey string) (string, error) {
	raw, err := json.Marshal(cursor{AnalysisID: analysisID, SortKey: sortKey})
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func decodeCursor(value, analysisID string) (string, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return "", errInvalidCursor
	}
	var c cursor
	if err := json.Unmarshal(raw, &c); err != nil || c.SortKey == "" {
		return "", errInvalidCursor
	}
	if c.AnalysisID != analysisID {
		return "", errors.New("cursor does not match query filters")
	}
	return c.SortKey, nil
}

func requiredString(attrs map[string]types.AttributeValue, name string) (string, error) {
	value, ok := attrs[name].(*types.AttributeValueMemberS)
	if !ok || strings.TrimSpace(value.Value) == "" {
		return "", fmt.Errorf("missing or invalid attribute %s", name)
	}
	return value.Value, nil
}

func optionalString(attrs map[string]types.AttributeValue, name string) string {
	if value, ok := attrs[name].(*types.AttributeValueMemberS); ok {
		return value.Value
	}
	return ""
}

func requiredNumber(attrs map[string]types.AttributeValue, name string) (int64, error) {
	value, ok := attrs[name].(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("missing or invalid attribute %s", name)
	}
	parsed, err := strconv.ParseInt(value.Value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid attribute %s: %w", name, err)
	}
	return parsed, nil
}
