package dto

import (
	"fmt"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// SummaryDTO - агрегированная сводка
type SummaryDTO struct {
	TotalReads       int64   `json:"totalReads" yaml:"totalReads"`
	QualityScore     float64 `json:"qualityScore" yaml:"qualityScore"`
	GCContent        float64 `json:"gcContent" yaml:"gcContent"`
	DuplicationLevel float64 `json:"duplicationLevel" yaml:"duplicationLevel"`
	AdapterContent   float64 `json:"adapterContent" yaml:"adapterContent"`
	Status           string  `json:"status" yaml:"status"`
}

// MetricDTO - строка таблицы метрик
type MetricDTO struct {
	Kind      string  `json:"kind" yaml:"kind"`
	Name      string  `json:"name" yaml:"name"`
	Value     float64 `json:"value" yaml:"value"`
	Status    string  `json:"status" yaml:"status"`
	Threshold float64 `json:"threshold" yaml:"threshold"`
}

// FileDTO описывает разобранный файл
type FileDTO struct {
	Name                 string            `json:"name" yaml:"name"`
	Size                 int64             `json:"size" yaml:"size"`
	Type                 string            `json:"type" yaml:"type"`
	Status               string            `json:"status" yaml:"status"`
	OverrepresentedCount int               `json:"overrepresentedCount" yaml:"overrepresentedCount"`
	Sources              map[string]string `json:"sources,omitempty" yaml:"sources,omitempty"`
}

// AnalysisResultDTO - сериализуемая форма AnalysisResult
type AnalysisResultDTO struct {
	Summary         SummaryDTO  `json:"summary" yaml:"summary"`
	Metrics         []MetricDTO `json:"metrics" yaml:"metrics"`
	Interpretation  string      `json:"interpretation" yaml:"interpretation"`
	Recommendations []string    `json:"recommendations" yaml:"recommendations"`
	Files           []FileDTO   `json:"files" yaml:"files"`
}

// AnalysisDTO - запись истории анализов
type AnalysisDTO struct {
	ID        string            `json:"id" yaml:"id"`
	FileName  string            `json:"fileName" yaml:"fileName"`
	Timestamp time.Time         `json:"timestamp" yaml:"timestamp"`
	Data      AnalysisResultDTO `json:"data" yaml:"data"`
}

// AnalysisListItemDTO - краткая запись для списка истории
type AnalysisListItemDTO struct {
	ID           string    `json:"id"`
	FileName     string    `json:"fileName"`
	Timestamp    time.Time `json:"timestamp"`
	Status       string    `json:"status"`
	FileCount    int       `json:"fileCount"`
	TotalReads   int64     `json:"totalReads"`
	QualityScore float64   `json:"qualityScore"`
}

// AnalysisListDTO - страница истории
type AnalysisListDTO struct {
	Items []AnalysisListItemDTO `json:"items"`
	Total int64                 `json:"total"`
}

// FromResult конвертирует AnalysisResult в DTO
func FromResult(r entity.AnalysisResult) AnalysisResultDTO {
	metrics := make([]MetricDTO, len(r.Metrics))
	for i, m := range r.Metrics {
		metrics[i] = MetricDTO{
			Kind:      m.Kind.String(),
			Name:      m.Name,
			Value:     m.Value,
			Status:    m.Status.String(),
			Threshold: m.Threshold,
		}
	}

	files := make([]FileDTO, len(r.Files))
	for i, f := range r.Files {
		var sources map[string]string
		if len(f.Sources) > 0 {
			sources = make(map[string]string, len(f.Sources))
			for kind, source := range f.Sources {
				sources[kind.String()] = source.String()
			}
		}
		files[i] = FileDTO{
			Name:                 f.Name,
			Size:                 f.Size,
			Type:                 f.Type,
			Status:               f.Status,
			OverrepresentedCount: f.OverrepresentedCount,
			Sources:              sources,
		}
	}

	recommendations := make([]string, len(r.Recommendations))
	copy(recommendations, r.Recommendations)

	return AnalysisResultDTO{
		Summary: SummaryDTO{
			TotalReads:       r.Summary.TotalReads,
			QualityScore:     r.Summary.QualityScore,
			GCContent:        r.Summary.GCContent,
			DuplicationLevel: r.Summary.DuplicationLevel,
			AdapterContent:   r.Summary.AdapterContent,
			Status:           r.Summary.Status.String(),
		},
		Metrics:         metrics,
		Interpretation:  r.Interpretation,
		Recommendations: recommendations,
		Files:           files,
	}
}

// ToEntity восстанавливает AnalysisResult с проверкой перечислений
func (d AnalysisResultDTO) ToEntity() (entity.AnalysisResult, error) {
	status := valueobject.Status(d.Summary.Status)
	if err := status.Validate(); err != nil {
		return entity.AnalysisResult{}, fmt.Errorf("invalid summary status %q: %w", d.Summary.Status, err)
	}

	metrics := make([]entity.Metric, len(d.Metrics))
	for i, m := range d.Metrics {
		kind := valueobject.MetricKind(m.Kind)
		if err := kind.Validate(); err != nil {
			return entity.AnalysisResult{}, fmt.Errorf("invalid metric kind %q: %w", m.Kind, err)
		}
		metricStatus := valueobject.Status(m.Status)
		if err := metricStatus.Validate(); err != nil {
			return entity.AnalysisResult{}, fmt.Errorf("invalid metric status %q: %w", m.Status, err)
		}
		metrics[i] = entity.Metric{
			Kind:      kind,
			Name:      m.Name,
			Value:     m.Value,
			Status:    metricStatus,
			Threshold: m.Threshold,
		}
	}

	files := make([]entity.FileDescriptor, len(d.Files))
	for i, f := range d.Files {
		var sources map[valueobject.MetricKind]valueobject.ExtractionSource
		if len(f.Sources) > 0 {
			sources = make(map[valueobject.MetricKind]valueobject.ExtractionSource, len(f.Sources))
			for kind, source := range f.Sources {
				sources[valueobject.MetricKind(kind)] = valueobject.ExtractionSource(source)
			}
		}
		files[i] = entity.FileDescriptor{
			Name:                 f.Name,
			Size:                 f.Size,
			Type:                 f.Type,
			Status:               f.Status,
			OverrepresentedCount: f.OverrepresentedCount,
			Sources:              sources,
		}
	}

	return entity.AnalysisResult{
		Summary: entity.Summary{
			TotalReads:       d.Summary.TotalReads,
			QualityScore:     d.Summary.QualityScore,
			GCContent:        d.Summary.GCContent,
			DuplicationLevel: d.Summary.DuplicationLevel,
			AdapterContent:   d.Summary.AdapterContent,
			Status:           status,
		},
		Metrics:         metrics,
		Interpretation:  d.Interpretation,
		Recommendations: d.Recommendations,
		Files:           files,
	}, nil
}

// FromAnalysis конвертирует запись истории в DTO
func FromAnalysis(a *entity.Analysis) *AnalysisDTO {
	return &AnalysisDTO{
		ID:        a.ID(),
		FileName:  a.Label(),
		Timestamp: a.CreatedAt(),
		Data:      FromResult(a.Result()),
	}
}

// ToEntity восстанавливает запись истории
func (d AnalysisDTO) ToEntity() (*entity.Analysis, error) {
	result, err := d.Data.ToEntity()
	if err != nil {
		return nil, err
	}
	return entity.ReconstructAnalysis(d.ID, d.FileName, result, d.Timestamp), nil
}

// ToListItem строит краткую запись для списка истории
func ToListItem(a *entity.Analysis) AnalysisListItemDTO {
	r := a.Result()
	return AnalysisListItemDTO{
		ID:           a.ID(),
		FileName:     a.Label(),
		Timestamp:    a.CreatedAt(),
		Status:       r.Summary.Status.String(),
		FileCount:    r.FileCount(),
		TotalReads:   r.Summary.TotalReads,
		QualityScore: r.Summary.QualityScore,
	}
}
