package entity

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Analysis - запись истории анализов (Aggregate Root)
type Analysis struct {
	id        string
	label     string
	result    AnalysisResult
	createdAt time.Time
}

// NewAnalysis создает новую запись истории (Factory Method)
func NewAnalysis(result AnalysisResult) (*Analysis, error) {
	if len(result.Files) == 0 {
		return nil, errors.New("analysis must reference at least one file")
	}

	return &Analysis{
		id:        uuid.New().String(),
		label:     buildLabel(result.Files),
		result:    result,
		createdAt: time.Now().UTC(),
	}, nil
}

// ReconstructAnalysis восстанавливает запись из хранилища (для Repository)
func ReconstructAnalysis(id, label string, result AnalysisResult, createdAt time.Time) *Analysis {
	if label == "" {
		label = buildLabel(result.Files)
	}

	return &Analysis{
		id:        id,
		label:     label,
		result:    result,
		createdAt: createdAt.UTC(),
	}
}

// ID возвращает идентификатор анализа
func (a *Analysis) ID() string {
	return a.id
}

// Label возвращает подпись для списка истории
func (a *Analysis) Label() string {
	return a.label
}

// Result возвращает результат анализа
func (a *Analysis) Result() AnalysisResult {
	return a.result
}

// CreatedAt возвращает время создания записи
func (a *Analysis) CreatedAt() time.Time {
	return a.createdAt
}

// Age возвращает возраст записи
func (a *Analysis) Age() time.Duration {
	return time.Since(a.createdAt)
}

func buildLabel(files []FileDescriptor) string {
	names := make([]string, 0, len(files))
	for _, f := range files {
		names = append(names, f.Name)
	}
	return strings.Join(names, ", ")
}
