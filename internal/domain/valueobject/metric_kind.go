package valueobject

import "errors"

// MetricKind представляет измеряемую характеристику отчета (Value Object)
type MetricKind string

const (
	TotalReads  MetricKind = "reads"
	Quality     MetricKind = "quality"
	GCContent   MetricKind = "gc"
	Duplication MetricKind = "duplication"
	Adapter     MetricKind = "adapter"
)

// Validate проверяет валидность вида метрики
func (k MetricKind) Validate() error {
	switch k {
	case TotalReads, Quality, GCContent, Duplication, Adapter:
		return nil
	default:
		return errors.New("invalid metric kind")
	}
}

// String возвращает строковое представление вида метрики
func (k MetricKind) String() string {
	return string(k)
}

// Unit возвращает единицу измерения
func (k MetricKind) Unit() string {
	switch k {
	case TotalReads:
		return "count"
	case Quality:
		return "phred"
	default:
		return "%"
	}
}

// AllMetricKinds возвращает виды метрик в порядке извлечения
func AllMetricKinds() []MetricKind {
	return []MetricKind{TotalReads, Quality, GCContent, Duplication, Adapter}
}
