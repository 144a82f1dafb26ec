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

// DeleteAnalysisUseCase удаляет одну запись истории
type DeleteAnalysisUseCase struct {
	repository repository.AnalysisRepository
	cache      port.Cache
	events     port.EventPublisher
	notifier   port.NotificationService
	logger     *logger.Logger
}

// NewDeleteAnalysisUseCase создает новый use case
func NewDeleteAnalysisUseCase(
	repository repository.AnalysisRepository,
	cache port.Cache,
	events port.EventPublisher,
	notifier port.NotificationService,
	logger *logger.Logger,
) *DeleteAnalysisUseCase {
	return &DeleteAnalysisUseCase{
		repository: repository,
		cache:      cache,
		events:     events,
		notifier:   notifier,
		logger:     logger,
	}
}

// Execute удаляет запись, сбрасывает кеш и рассылает событие
func (uc *DeleteAnalysisUseCase) Execute(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("%w: analysis id is required", ErrInvalidInput)
	}

	if err := uc.repository.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrAnalysisNotFound) {
			return err
		}
		uc.logger.Error("Failed to delete analysis", err, "id", id)
		return fmt.Errorf("failed to delete analysis: %w", err)
	}

	if uc.cache != nil {
		if err := uc.cache.Delete(ctx, analysisCacheKey(id)); err != nil {
			uc.logger.Warn("Failed to evict analysis from cache", "id", id, "error", err.Error())
		}
		if err := uc.cache.DeletePattern(ctx, cacheKeyListPattern); err != nil {
			uc.logger.Warn("Failed to invalidate history cache", "error", err.Error())
		}
	}

	publishHistoryEvent(ctx, uc.events, uc.notifier, uc.logger, port.SubjectAnalysisDeleted, dto.NewDeletedEvent(id))

	uc.logger.Info("Analysis deleted", "id", id)
	return nil
}

// publishHistoryEvent отправляет событие в брокер и WebSocket клиентам
func publishHistoryEvent(
	ctx context.Context,
	events port.EventPublisher,
	notifier port.NotificationService,
	log *logger.Logger,
	subject string,
	event *dto.AnalysisEventDTO,
) {
	if events != nil {
		if err := events.PublishEvent(ctx, subject, event); err != nil {
			log.Warn("Failed to publish history event", "subject", subject, "error", err.Error())
		}
	}
	if notifier != nil {
		notifier.Broadcast(event)
	}
}
