package port

import "time"

// AnalysisRecorder собирает счетчики выполнения анализов (Prometheus).
type AnalysisRecorder interface {
	// ObserveAnalysis фиксирует завершенный анализ
	ObserveAnalysis(status string, files int, duration time.Duration)

	// ObserveExtraction фиксирует источник значения одной метрики
	ObserveExtraction(kind, source string)

	// ObserveCache фиксирует попадание или промах кеша
	ObserveCache(hit bool)
}
