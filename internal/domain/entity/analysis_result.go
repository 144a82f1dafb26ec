package entity

import (
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// FileStatusAnalyzed - статус файла после разбора
const FileStatusAnalyzed = "analyzed"

// Summary - агрегированные показатели по всем файлам
type Summary struct {
	TotalReads       int64
	QualityScore     float64
	GCContent        float64
	DuplicationLevel float64
	AdapterContent   float64
	Status           valueobject.Status
}

// Metric - строка таблицы метрик со своим статусом и порогом
type Metric struct {
	Kind      valueobject.MetricKind
	Name      string
	Value     float64
	Status    valueobject.Status
	Threshold float64
}

// FileDescriptor описывает разобранный файл
type FileDescriptor struct {
	Name                 string
	Size                 int64
	Type                 string
	Status               string
	OverrepresentedCount int
	Sources              map[valueobject.MetricKind]valueobject.ExtractionSource
}

// AnalysisResult - итог одного запуска анализа
// Создается один раз и передается потребителям как значение
type AnalysisResult struct {
	Summary         Summary
	Metrics         []Metric
	Interpretation  string
	Recommendations []string
	Files           []FileDescriptor
}

// MetricByKind находит метрику таблицы по виду
func (r AnalysisResult) MetricByKind(kind valueobject.MetricKind) (Metric, bool) {
	for _, m := range r.Metrics {
		if m.Kind == kind {
			return m, true
		}
	}
	return Metric{}, false
}

// FileCount возвращает число разобранных файлов
func (r AnalysisResult) FileCount() int {
	return len(r.Files)
}
