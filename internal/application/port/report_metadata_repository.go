package port

import (
	"context"
	"time"
)

// ReportMetadata представляет метаданные архивированного отчета.
type ReportMetadata struct {
	AnalysisID  string
	FileIndex   int
	FileName    string
	S3Key       string
	URL         string
	ContentType string
	SizeBytes   int64
	UploadedAt  time.Time
}

// ReportListQuery определяет параметры выборки архива одного анализа.
type ReportListQuery struct {
	AnalysisID string
	Limit      int
	Cursor     string
}

// ReportListPage содержит результат выборки и курсор следующей страницы.
type ReportListPage struct {
	Items      []ReportMetadata
	NextCursor string
}

// ReportMetadataRepository определяет интерфейс индекса архивированных отчетов.
type ReportMetadataRepository interface {
	PutBatch(ctx context.Context, records []ReportMetadata) error
	ListByAnalysis(ctx context.Context, query ReportListQuery) (ReportListPage, error)
}
