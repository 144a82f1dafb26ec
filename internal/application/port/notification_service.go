package port

import "github.com/dreschagin/fastqc-analyzer/internal/application/dto"

// NotificationService определяет интерфейс для отправки уведомлений (Port)
// Реализация будет в Infrastructure слое (WebSocket Hub)
type NotificationService interface {
	// Broadcast отправляет событие истории всем подключенным клиентам
	Broadcast(event *dto.AnalysisEventDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
