package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// GetAnalysisUseCase возвращает запись истории с кешированием
type GetAnalysisUseCase struct {
	repository repository.AnalysisRepository
	cache      port.Cache
	logger     *logger.Logger
}

// NewGetAnalysisUseCase создает новый use case
func NewGetAnalysisUseCase(
	repository repository.AnalysisRepository,
	cache port.Cache,
	logger *logger.Logger,
) *GetAnalysisUseCase {
	return &GetAnalysisUseCase{
		repository: repository,
		cache:      cache,
		logger:     logger,
	}
}

// Execute находит запись по идентификатору
func (uc *GetAnalysisUseCase) Execute(ctx context.Context, id string) (*dto.AnalysisDTO, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: analysis id is required", ErrInvalidInput)
	}

	// Если кеш не настроен, идем сразу в хранилище
	if uc.cache == nil {
		return uc.fetch(ctx, id)
	}

	cacheKey := analysisCacheKey(id)

	var cached dto.AnalysisDTO
	if err := uc.cache.Get(ctx, cacheKey, &cached); err == nil {
		uc.logger.Debug("Cache hit for analysis", "id", id)
		return &cached, nil
	}

	uc.logger.Debug("Cache miss for analysis, fetching from repository", "id", id)

	analysis, err := uc.fetch(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := uc.cache.Set(ctx, cacheKey, analysis); err != nil {
		uc.logger.Warn("Failed to cache analysis", "id", id, "error", err.Error())
	}

	return analysis, nil
}

func (uc *GetAnalysisUseCase) fetch(ctx context.Context, id string) (*dto.AnalysisDTO, error) {
	analysis, err := uc.repository.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			return nil, err
		}
		uc.logger.Error("Failed to fetch analysis", err, "id", id)
		return nil, fmt.Errorf("failed to fetch analysis: %w", err)
	}
	return dto.FromAnalysis(analysis), nil
}
