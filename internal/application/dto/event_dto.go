package dto

import "time"

// Типы событий истории анализов
const (
	EventAnalysisCompleted = "analysis_completed"
	EventAnalysisDeleted   = "analysis_deleted"
	EventHistoryCleared    = "history_cleared"
)

// AnalysisEventDTO - событие для брокера сообщений и WebSocket клиентов
type AnalysisEventDTO struct {
	Type       string      `json:"type"`
	AnalysisID string      `json:"analysisId,omitempty"`
	FileName   string      `json:"fileName,omitempty"`
	FileCount  int         `json:"fileCount,omitempty"`
	Summary    *SummaryDTO `json:"summary,omitempty"`
	Deleted    int64       `json:"deleted,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// NewCompletedEvent создает событие о завершенном анализе
func NewCompletedEvent(analysis *AnalysisDTO) *AnalysisEventDTO {
	summary := analysis.Data.Summary
	return &AnalysisEventDTO{
		Type:       EventAnalysisCompleted,
		AnalysisID: analysis.ID,
		FileName:   analysis.FileName,
		FileCount:  len(analysis.Data.Files),
		Summary:    &summary,
		Timestamp:  time.Now().UTC(),
	}
}

// NewDeletedEvent создает событие об удалении записи
func NewDeletedEvent(id string) *AnalysisEventDTO {
	return &AnalysisEventDTO{
		Type:       EventAnalysisDeleted,
		AnalysisID: id,
		Timestamp:  time.Now().UTC(),
	}
}

// NewHistoryClearedEvent создает событие об очистке истории
func NewHistoryClearedEvent(deleted int64) *AnalysisEventDTO {
	return &AnalysisEventDTO{
		Type:      EventHistoryCleared,
		Deleted:   deleted,
		Timestamp: time.Now().UTC(),
	}
}
