package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/valueobject"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// ListAnalysesQuery - параметры списка истории
type ListAnalysesQuery struct {
	Limit int
	From  time.Time
	To    time.Time
}

// ListAnalysesUseCase возвращает историю анализов, новые первыми
type ListAnalysesUseCase struct {
	repository repository.AnalysisRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewListAnalysesUseCase создает новый use case
func NewListAnalysesUseCase(
	repository repository.AnalysisRepository,
	cache port.Cache,
	logger *logger.Logger,
) *ListAnalysesUseCase {
	return &ListAnalysesUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute выполняет выборку истории
func (uc *ListAnalysesUseCase) Execute(ctx context.Context, query ListAnalysesQuery) (*dto.AnalysisListDTO, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	timeRange, err := valueobject.NewTimeRange(query.From, query.To)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	if uc.cache == nil {
		return uc.fetch(ctx, limit, timeRange)
	}

	cacheKey := listCacheKey(limit, unixOrZero(query.From), unixOrZero(query.To))

	var cached dto.AnalysisListDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for analysis history", "count", len(cached.Items))
		return &cached, nil
	}

	list, err := uc.fetch(ctx, limit, timeRange)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, cacheKey, list); err != nil {
		uc.logger.Warn("Failed to cache analysis history", "error", err.Error())
	}

	return list, nil
}

func (uc *ListAnalysesUseCase) fetch(
	ctx context.Context,
	limit int,
	timeRange valueobject.TimeRange,
) (*dto.AnalysisListDTO, error) {
	analyses, err := uc.repository.List(ctx, repository.AnalysisQuery{Limit: limit, TimeRange: timeRange})
	if err != nil {
		uc.logger.Error("Failed to list analyses", err)
		return nil, fmt.Errorf("failed to list analyses: %w", err)
	}

	total, err := uc.repository.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count analyses: %w", err)
	}

	items := make([]dto.AnalysisListItemDTO, len(analyses))
	for i, a := range analyses {
		items[i] = dto.ToListItem(a)
	}

	return &dto.AnalysisListDTO{Items: items, Total: total}, nil
}

func unixOrZero(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
