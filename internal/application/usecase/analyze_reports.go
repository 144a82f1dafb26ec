package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/service"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// ReportUpload - загруженный файл до декодирования
type ReportUpload struct {
	Name     string
	MimeType string
	Data     []byte
}

// AnalyzeReportsCommand - запрос на анализ набора отчетов
type AnalyzeReportsCommand struct {
	Files    []ReportUpload
	Language string
}

// AnalyzeReportsConfig - ограничения загрузки
type AnalyzeReportsConfig struct {
	MaxFiles     int
	MaxFileBytes int64
}

// AnalyzeReportsDependencies - внешние зависимости use case
// Все поля кроме Analyzer и Repository необязательны
type AnalyzeReportsDependencies struct {
	Analyzer   *service.ReportAnalyzer
	Repository repository.AnalysisRepository
	Cache      port.Cache
	Archiver   *ReportArchiver
	Metrics    port.MetricsPublisher
	Events     port.EventPublisher
	Notifier   port.NotificationService
	Recorder   port.AnalysisRecorder
}

// AnalyzeReportsUseCase координирует разбор, сохранение и рассылку результатов анализа
type AnalyzeReportsUseCase struct {
	deps   AnalyzeReportsDependencies
	config AnalyzeReportsConfig
	logger *logger.Logger
}

// NewAnalyzeReportsUseCase создает новый use case
func NewAnalyzeReportsUseCase(
	deps AnalyzeReportsDependencies,
	config AnalyzeReportsConfig,
	log *logger.Logger,
) *AnalyzeReportsUseCase {
	if config.MaxFiles <= 0 {
		config.MaxFiles = 20
	}
	if config.MaxFileBytes <= 0 {
		config.MaxFileBytes = 50 << 20
	}
	return &AnalyzeReportsUseCase{
		deps:   deps,
		config: config,
		logger: log,
	}
}

// Execute выполняет анализ. Фатальна только ошибка сохранения истории,
// остальные побочные каналы логируются и пропускаются
func (uc *AnalyzeReportsUseCase) Execute(ctx context.Context, cmd AnalyzeReportsCommand) (*dto.AnalysisDTO, error) {
	started := time.Now()

	// 1. Валидация и декодирование
	files, err := uc.buildReportFiles(cmd.Files)
	if err != nil {
		return nil, err
	}

	analyzer := uc.deps.Analyzer
	if cmd.Language != "" {
		analyzer = analyzer.WithLanguage(service.ResolveLanguage(cmd.Language))
	}
	lang := analyzer.Language()

	// 2. Анализ с кешированием по содержимому
	result, err := uc.analyze(ctx, analyzer, files)
	if err != nil {
		return nil, err
	}

	// 3. Сохранение в историю
	analysis, err := entity.NewAnalysis(result)
	if err != nil {
		return nil, fmt.Errorf("failed to create analysis: %w", err)
	}
	if err := uc.deps.Repository.Save(ctx, analysis); err != nil {
		uc.logger.Error("Failed to save analysis", err, "files", len(files))
		return nil, fmt.Errorf("failed to save analysis: %w", err)
	}

	analysisDTO := dto.FromAnalysis(analysis)

	// 4. Побочные каналы
	uc.invalidateLists(ctx)
	uc.archive(ctx, analysis, cmd.Files)
	uc.publishMetrics(ctx, analysis)
	uc.notify(ctx, analysisDTO)
	uc.record(result, time.Since(started))

	uc.logger.Info("Analysis completed",
		"analysis_id", analysis.ID(),
		"files", len(files),
		"status", result.Summary.Status.String(),
		"language", lang.String(),
	)

	return analysisDTO, nil
}

func (uc *AnalyzeReportsUseCase) buildReportFiles(uploads []ReportUpload) ([]entity.ReportFile, error) {
	if len(uploads) == 0 {
		return nil, service.ErrEmptyInput
	}
	if len(uploads) > uc.config.MaxFiles {
		return nil, fmt.Errorf("%w: %d files, limit is %d", ErrTooManyFiles, len(uploads), uc.config.MaxFiles)
	}

	files := make([]entity.ReportFile, 0, len(uploads))
	for _, upload := range uploads {
		name := strings.TrimSpace(upload.Name)
		if int64(len(upload.Data)) > uc.config.MaxFileBytes {
			return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, name)
		}
		if !IsAcceptedReport(name, upload.MimeType) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
		}

		file, err := entity.NewReportFile(name, decodeReport(upload.Data), int64(len(upload.Data)), upload.MimeType)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		files = append(files, file)
	}

	return files, nil
}

func (uc *AnalyzeReportsUseCase) analyze(
	ctx context.Context,
	analyzer *service.ReportAnalyzer,
	files []entity.ReportFile,
) (entity.AnalysisResult, error) {
	if uc.deps.Cache == nil {
		return analyzer.Analyze(files)
	}

	cacheKey := resultCacheKey(files, analyzer.Language())

	var cached dto.AnalysisResultDTO
	if err := uc.deps.Cache.Get(ctx, cacheKey, &cached); err == nil {
		if result, err := cached.ToEntity(); err == nil {
			uc.logger.Debug("Cache hit for analysis result", "key", cacheKey)
			uc.observeCache(true)
			return result, nil
		}
	}
	uc.observeCache(false)

	result, err := analyzer.Analyze(files)
	if err != nil {
		return entity.AnalysisResult{}, err
	}

	if err := uc.deps.Cache.Set(ctx, cacheKey, dto.FromResult(result)); err != nil {
		uc.logger.Warn("Failed to cache analysis result", "error", err.Error())
	}

	return result, nil
}

func (uc *AnalyzeReportsUseCase) invalidateLists(ctx context.Context) {
	if uc.deps.Cache == nil {
		return
	}
	if err := uc.deps.Cache.DeletePattern(ctx, cacheKeyListPattern); err != nil {
		uc.logger.Warn("Failed to invalidate history cache", "error", err.Error())
	}
}

func (uc *AnalyzeReportsUseCase) archive(ctx context.Context, analysis *entity.Analysis, uploads []ReportUpload) {
	if !uc.deps.Archiver.Enabled() {
		return
	}

	files := make([]ArchivedFile, len(uploads))
	for i, upload := range uploads {
		files[i] = ArchivedFile{
			Name:        upload.Name,
			ContentType: upload.MimeType,
			Data:        upload.Data,
		}
	}

	if _, err := uc.deps.Archiver.Archive(ctx, analysis.ID(), analysis.CreatedAt(), files); err != nil {
		uc.logger.Warn("Failed to archive reports", "analysis_id", analysis.ID(), "error", err.Error())
	}
}

func (uc *AnalyzeReportsUseCase) publishMetrics(ctx context.Context, analysis *entity.Analysis) {
	if uc.deps.Metrics == nil {
		return
	}
	if err := uc.deps.Metrics.PublishBatch(ctx, SummarySamples(analysis)); err != nil {
		uc.logger.Warn("Failed to publish summary metrics", "analysis_id", analysis.ID(), "error", err.Error())
	}
}

func (uc *AnalyzeReportsUseCase) notify(ctx context.Context, analysis *dto.AnalysisDTO) {
	event := dto.NewCompletedEvent(analysis)

	if uc.deps.Events != nil {
		if err := uc.deps.Events.PublishEvent(ctx, port.SubjectAnalysisCompleted, event); err != nil {
			uc.logger.Warn("Failed to publish analysis event", "analysis_id", analysis.ID, "error", err.Error())
		}
	}

	if uc.deps.Notifier != nil {
		uc.deps.Notifier.Broadcast(event)
		uc.logger.Debug("Analysis broadcasted to clients", "client_count", uc.deps.Notifier.ClientCount())
	}
}

func (uc *AnalyzeReportsUseCase) record(result entity.AnalysisResult, duration time.Duration) {
	if uc.deps.Recorder == nil {
		return
	}

	uc.deps.Recorder.ObserveAnalysis(result.Summary.Status.String(), result.FileCount(), duration)
	for _, f := range result.Files {
		for kind, source := range f.Sources {
			uc.deps.Recorder.ObserveExtraction(kind.String(), source.String())
		}
	}
}

func (uc *AnalyzeReportsUseCase) observeCache(hit bool) {
	if uc.deps.Recorder != nil {
		uc.deps.Recorder.ObserveCache(hit)
	}
}

// SummarySamples строит точки экспорта сводки анализа
func SummarySamples(analysis *entity.Analysis) []port.MetricSample {
	summary := analysis.Result().Summary
	ts := analysis.CreatedAt()
	dims := map[string]string{"Status": summary.Status.String()}

	return []port.MetricSample{
		{Name: "QualityScore", Value: summary.QualityScore, Unit: "phred", Dimensions: dims, Timestamp: ts},
		{Name: "GCContent", Value: summary.GCContent, Unit: "%", Dimensions: dims, Timestamp: ts},
		{Name: "DuplicationLevel", Value: summary.DuplicationLevel, Unit: "%", Dimensions: dims, Timestamp: ts},
		{Name: "AdapterContent", Value: summary.AdapterContent, Unit: "%", Dimensions: dims, Timestamp: ts},
		{Name: "TotalReads", Value: float64(summary.TotalReads), Unit: "count", Dimensions: dims, Timestamp: ts},
		{Name: "FileCount", Value: float64(analysis.Result().FileCount()), Unit: "count", Dimensions: dims, Timestamp: ts},
	}
}
