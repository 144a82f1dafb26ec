package repository

import (
	"context"
	"errors"

	"github.com/dreschagin/fastqc-analyzer/internal/domain/entity"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
)

// ErrAnalysisNotFound возвращается, когда запись истории отсутствует
var ErrAnalysisNotFound = errors.New("analysis not found")

// AnalysisQuery - параметры выборки истории
type AnalysisQuery struct {
	Limit     int
	TimeRange valueobject.TimeRange
}

// AnalysisRepository определяет интерфейс хранилища истории анализов (Port)
// Реализация будет в Infrastructure слое
type AnalysisRepository interface {
	// Save сохраняет запись истории
	Save(ctx context.Context, analysis *entity.Analysis) error

	// FindByID находит запись по идентификатору или возвращает ErrAnalysisNotFound
	FindByID(ctx context.Context, id string) (*entity.Analysis, error)

	// List возвращает записи, начиная с самых новых
	List(ctx context.Context, query AnalysisQuery) ([]*entity.Analysis, error)

	// Delete удаляет запись или возвращает ErrAnalysisNotFound
	Delete(ctx context.Context, id string) error

	// DeleteAll очищает историю и возвращает число удаленных записей
	DeleteAll(ctx context.Context) (int64, error)

	// Count возвращает число записей
	Count(ctx context.Context) (int64, error)
}
