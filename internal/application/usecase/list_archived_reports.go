package usecase

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

type ListArchivedReportsCommand struct {
	AnalysisID string
	Limit      int
	Cursor     string
}

type ArchivedReportItem struct {
	FileIndex  int       `json:"fileIndex"`
	FileName   string    `json:"fileName"`
	S3Key      string    `json:"key"`
	URL        string    `json:"url"`
	SizeBytes  int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type ListArchivedReportsResult struct {
	Items      []ArchivedReportItem `json:"items"`
	NextCursor string               `json:"nextCursor,omitempty"`
}

type ListArchivedReportsConfig struct {
	KeyPrefix           string
	DefaultLimit        int
	MaxLimit            int
	FallbackToS3OnError bool
}

type ListArchivedReportsUseCase struct {
	storage            port.ReportStorage
	metadataRepository port.ReportMetadataRepository
	config             ListArchivedReportsConfig
	logger             *logger.Logger
}

func NewListArchivedReportsUseCase(
	storage port.ReportStorage,
	metadataRepository port.ReportMetadataRepository,
	config ListArchivedReportsConfig,
	log *logger.Logger,
) *ListArchivedReportsUseCase {
	if config.DefaultLimit <= 0 {
		config.DefaultLimit = 24
	}
	if config.MaxLimit <= 0 {
		config.MaxLimit = 100
	}
	return &ListArchivedReportsUseCase{
		storage:            storage,
		metadataRepository: metadataRepository,
		config:             config,
		logger:             log,
	}
}

func (uc *ListArchivedReportsUseCase) Execute(
	ctx context.Context,
	cmd ListArchivedReportsCommand,
) (*ListArchivedReportsResult, error) {
	analysisID := strings.TrimSpace(cmd.AnalysisID)
	if _, err := uuid.Parse(analysisID); err != nil {
		return nil, fmt.Errorf("%w: invalid analysis id", ErrInvalidInput)
	}

	limit := cmd.Limit
	if limit <= 0 {
		limit = uc.config.DefaultLimit
	}
	if limit > uc.config.MaxLimit {
		limit = uc.config.MaxLimit
	}

	query := port.ReportListQuery{
		AnalysisID: analysisID,
		Limit:      limit,
		Cursor:     strings.TrimSpace(cmd.Cursor),
	}

	if uc.metadataRepository != nil {
		page, err := uc.metadataRepository.ListByAnalysis(ctx, query)
		if err == nil {
			return uc.mapMetadataPage(ctx, page), nil
		}

		if !uc.config.FallbackToS3OnError {
			return nil, fmt.Errorf("failed to list reports via metadata index: %w", err)
		}

		uc.logger.Warn("Report metadata index is unavailable, using S3 fallback",
			"analysis_id", analysisID,
			"error", err.Error(),
		)
	}

	return uc.listFromStorage(ctx, query)
}

func (uc *ListArchivedReportsUseCase) mapMetadataPage(
	ctx context.Context,
	page port.ReportListPage,
) *ListArchivedReportsResult {
	items := make([]ArchivedReportItem, 0, len(page.Items))
	for _, record := range page.Items {
		url := record.URL
		if uc.storage != nil {
			if generatedURL, err := uc.storage.GetObjectURL(ctx, record.S3Key); err == nil {
				url = generatedURL
			}
		}

		items = append(items, ArchivedReportItem{
			FileIndex:  record.FileIndex,
			FileName:   record.FileName,
			S3Key:      record.S3Key,
			URL:        url,
			SizeBytes:  record.SizeBytes,
			UploadedAt: record.UploadedAt.UTC(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FileIndex < items[j].FileIndex
	})

	return &ListArchivedReportsResult{
		Items:      items,
		NextCursor: page.NextCursor,
	}
}

func (uc *ListArchivedReportsUseCase) listFromStorage(
	ctx context.Context,
	query port.ReportListQuery,
) (*ListArchivedReportsResult, error) {
	if uc.storage == nil {
		return nil, fmt.Errorf("report storage is not configured")
	}
	if query.Cursor != "" {
		return nil, fmt.Errorf("%w: cursor pagination requires report metadata index", ErrInvalidInput)
	}

	archiver := &ReportArchiver{config: ReportArchiveConfig{KeyPrefix: uc.config.KeyPrefix}}
	objects, err := uc.storage.ListObjects(ctx, archiver.analysisPrefix(query.AnalysisID), query.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	items := make([]ArchivedReportItem, 0, len(objects))
	for _, object := range objects {
		index, name := parseArchivedKey(object.Key)
		items = append(items, ArchivedReportItem{
			FileIndex:  index,
			FileName:   name,
			S3Key:      object.Key,
			URL:        object.URL,
			SizeBytes:  object.SizeBytes,
			UploadedAt: object.LastModified.UTC(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].FileIndex < items[j].FileIndex
	})

	if len(items) > query.Limit {
		items = items[:query.Limit]
	}

	return &ListArchivedReportsResult{Items: items}, nil
}
