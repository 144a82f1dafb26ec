package entity

import (
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// FileMetrics содержит метрики, извлеченные из одного отчета
// Создается один раз парсером и больше не изменяется
type FileMetrics struct {
	filename             string
	extractions          map[valueobject.MetricKind]valueobject.Extraction
	overrepresentedCount int
}

// NewFileMetrics создает FileMetrics из результатов извлечения
// Отсутствующие виды метрик считаются нулевыми значениями по умолчанию
func NewFileMetrics(
	filename string,
	extractions map[valueobject.MetricKind]valueobject.Extraction,
	overrepresentedCount int,
) FileMetrics {
	copied := make(map[valueobject.MetricKind]valueobject.Extraction, len(valueobject.AllMetricKinds()))
	for _, kind := range valueobject.AllMetricKinds() {
		if e, ok := extractions[kind]; ok {
			copied[kind] = e
			continue
		}
		copied[kind] = valueobject.Default(0)
	}
	if overrepresentedCount < 0 {
		overrepresentedCount = 0
	}

	return FileMetrics{
		filename:             filename,
		extractions:          copied,
		overrepresentedCount: overrepresentedCount,
	}
}

// Filename возвращает имя исходного файла
func (m FileMetrics) Filename() string {
	return m.filename
}

// TotalReads возвращает число прочтений
func (m FileMetrics) TotalReads() int64 {
	return int64(m.extractions[valueobject.TotalReads].Value())
}

// QualityScore возвращает средний Phred score
func (m FileMetrics) QualityScore() float64 {
	return m.extractions[valueobject.Quality].Value()
}

// GCContent возвращает содержание GC в процентах
func (m FileMetrics) GCContent() float64 {
	return m.extractions[valueobject.GCContent].Value()
}

// DuplicationLevel возвращает уровень дупликации в процентах
func (m FileMetrics) DuplicationLevel() float64 {
	return m.extractions[valueobject.Duplication].Value()
}

// AdapterContent возвращает содержание адаптеров в процентах
func (m FileMetrics) AdapterContent() float64 {
	return m.extractions[valueobject.Adapter].Value()
}

// OverrepresentedCount возвращает число сверхпредставленных последовательностей
func (m FileMetrics) OverrepresentedCount() int {
	return m.overrepresentedCount
}

// Extraction возвращает результат извлечения для вида метрики
func (m FileMetrics) Extraction(kind valueobject.MetricKind) valueobject.Extraction {
	return m.extractions[kind]
}

// Sources возвращает источники всех метрик файла
func (m FileMetrics) Sources() map[valueobject.MetricKind]valueobject.ExtractionSource {
	result := make(map[valueobject.MetricKind]valueobject.ExtractionSource, len(m.extractions))
	for kind, e := range m.extractions {
		result[kind] = e.Source()
	}
	return result
}

// SyntheticCount возвращает число метрик, не найденных в тексте
func (m FileMetrics) SyntheticCount() int {
	count := 0
	for _, e := range m.extractions {
		if e.IsSynthetic() {
			count++
		}
	}
	return count
}
