package usecase

import (
	"context"
	"fmt"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/internal/application/port"
	"github.com/dreschagin/fastqc-analyzer/internal/domain/repository"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// ClearHistoryUseCase удаляет всю историю анализов
type ClearHistoryUseCase struct {
	repository repository.AnalysisRepository
	cache      port.Cache
	events     port.EventPublisher
	notifier   port.NotificationService
	logger     *logger.Logger
}

// NewClearHistoryUseCase создает новый use case
func NewClearHistoryUseCase(
	repository repository.AnalysisRepository,
	cache port.Cache,
	events port.EventPublisher,
	notifier port.NotificationService,
	logger *logger.Logger,
) *ClearHistoryUseCase {
	return &ClearHistoryUseCase{
		repository: repository,
		cache:      cache,
		events:     events,
		notifier:   notifier,
		logger:     logger,
	}
}

// Execute очищает историю и возвращает число удаленных записей
func (uc *ClearHistoryUseCase) Execute(ctx context.Context) (int64, error) {
	deleted, err := uc.repository.DeleteAll(ctx)
	if err != nil {
		uc.logger.Error("Failed to clear history", err)
		return 0, fmt.Errorf("failed to clear history: %w", err)
	}

	if uc.cache != nil {
		for _, pattern := range []string{cacheKeyAnalysisPrefix + "*", cacheKeyListPattern} {
			if err := uc.cache.DeletePattern(ctx, pattern); err != nil {
				uc.logger.Warn("Failed to invalidate history cache", "pattern", pattern, "error", err.Error())
			}
		}
	}

	publishHistoryEvent(ctx, uc.events, uc.notifier, uc.logger, port.SubjectHistoryCleared, dto.NewHistoryClearedEvent(deleted))

	uc.logger.Info("History cleared", "deleted", deleted)
	return deleted, nil
}
