package usecase

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const defaultReportKeyPrefix = "reports"

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

type ArchivedFile struct {
	Name        string
	ContentType string
	Data        []byte
}

type ReportArchiveConfig struct {
	KeyPrefix string
}

// ReportArchiver сохраняет исходные отчеты в объектное хранилище и индекс метаданных
type ReportArchiver struct {
	storage  port.ReportStorage
	metadata port.ReportMetadataRepository
	config   ReportArchiveConfig
	logger   *logger.Logger
}

func NewReportArchiver(
	storage port.ReportStorage,
	metadata port.ReportMetadataRepository,
	config ReportArchiveConfig,
	log *logger.Logger,
) *ReportArchiver {
	return &ReportArchiver{
		storage:  storage,
		metadata: metadata,
		config:   config,
		logger:   log,
	}
}

// Enabled сообщает, настроено ли хранилище
func (a *ReportArchiver) Enabled() bool {
	return a != nil && a.storage != nil
}

func (a *ReportArchiver) Archive(
	ctx context.Context,
	analysisID string,
	uploadedAt time.Time,
	files []ArchivedFile,
) ([]port.ReportMetadata, error) {
	if !a.Enabled() {
		return nil, fmt.Errorf("report storage is not configured")
	}

	uploadedAt = uploadedAt.UTC()
	records := make([]port.ReportMetadata, 0, len(files))
	for i, file := range files {
		contentType := file.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		key := a.buildS3Key(analysisID, uploadedAt, i, file.Name)
		url, err := a.storage.PutObject(ctx, key, contentType, file.Data)
		if err != nil {
			a.logger.Error("Failed to upload report", err,
				"analysis_id", analysisID,
				"file", file.Name,
			)
			return nil, fmt.Errorf("failed to upload %s: %w", file.Name, err)
		}

		records = append(records, port.ReportMetadata{
			AnalysisID:  analysisID,
			FileIndex:   i,
			FileName:    file.Name,
			S3Key:       key,
			URL:         url,
			ContentType: contentType,
			SizeBytes:   int64(len(file.Data)),
			UploadedAt:  uploadedAt,
		})
	}

	if a.metadata != nil {
		if err := a.metadata.PutBatch(ctx, records); err != nil {
			return records, fmt.Errorf("failed to index archived reports: %w", err)
		}
	}

	return records, nil
}

func (a *ReportArchiver) keyPrefix() string {
	prefix := strings.Trim(a.config.KeyPrefix, "/")
	if prefix == "" {
		prefix = defaultReportKeyPrefix
	}
	return prefix
}

func (a *ReportArchiver) analysisPrefix(analysisID string) string {
	return fmt.Sprintf("%s/%s/", a.keyPrefix(), analysisID)
}

func (a *ReportArchiver) buildS3Key(analysisID string, uploadedAt time.Time, index int, name string) string {
	datePrefix := uploadedAt.Format("2006/01/02")
	return fmt.Sprintf("%s%s/%02d_%s", a.analysisPrefix(analysisID), datePrefix, index, sanitizeFileName(name))
}

func sanitizeFileName(name string) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "" || base == "." || base == "/" {
		return "report"
	}
	cleaned := strings.Trim(unsafeKeyChars.ReplaceAllString(base, "_"), "_")
	if cleaned == "" {
		return "report"
	}
	return cleaned
}

// parseArchivedKey восстанавливает индекс и имя файла из ключа вида "NN_name"
func parseArchivedKey(key string) (int, string) {
	filename := path.Base(strings.TrimSpace(key))
	if filename == "" || filename == "." {
		return -1, "unknown"
	}

	underscore := strings.IndexRune(filename, '_')
	if underscore <= 0 || underscore == len(filename)-1 {
		return -1, filename
	}

	index, err := strconv.Atoi(filename[:underscore])
	if err != nil {
		return -1, filename
	}
	return index, filename[underscore+1:]
}
