package valueobject

import (
	"errors"
	"fmt"
)

// ExtractionSource показывает, откуда взято значение метрики
type ExtractionSource string

const (
	// SourceMatched - значение найдено шаблоном в тексте отчета
	SourceMatched ExtractionSource = "matched"
	// SourceHeuristic - значение оценено по косвенным признакам
	SourceHeuristic ExtractionSource = "heuristic"
	// SourceDefault - синтетическое значение из полосы по умолчанию
	SourceDefault ExtractionSource = "default"
)

// Validate проверяет валидность источника
func (s ExtractionSource) Validate() error {
	switch s {
	case SourceMatched, SourceHeuristic, SourceDefault:
		return nil
	default:
		return errors.New("invalid extraction source")
	}
}

// String возвращает строковое представление источника
func (s ExtractionSource) String() string {
	return string(s)
}

// Extraction - результат извлечения одной метрики (Value Object)
// Иммутабельный объект
type Extraction struct {
	source ExtractionSource
	value  float64
}

// NewExtraction создает новый Extraction с валидацией
func NewExtraction(source ExtractionSource, value float64) (Extraction, error) {
	if err := source.Validate(); err != nil {
		return Extraction{}, err
	}
	if value < 0 {
		return Extraction{}, errors.New("value cannot be negative")
	}

	return Extraction{source: source, value: value}, nil
}

// Matched создает Extraction для найденного значения
func Matched(value float64) Extraction {
	return Extraction{source: SourceMatched, value: value}
}

// Heuristic создает Extraction для оцененного значения
func Heuristic(value float64) Extraction {
	return Extraction{source: SourceHeuristic, value: value}
}

// Default создает Extraction для синтетического значения
func Default(value float64) Extraction {
	return Extraction{source: SourceDefault, value: value}
}

// Source возвращает источник значения
func (e Extraction) Source() ExtractionSource {
	return e.source
}

// Value возвращает числовое значение
func (e Extraction) Value() float64 {
	return e.value
}

// IsSynthetic сообщает, что значение не было найдено в тексте
func (e Extraction) IsSynthetic() bool {
	return e.source != SourceMatched
}

// String возвращает строковое представление
func (e Extraction) String() string {
	return fmt.Sprintf("%.2f (%s)", e.value, e.source)
}
