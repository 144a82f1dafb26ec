package handler

import (
	"net/http"

	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/system"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"
)

// HealthHandler обслуживает liveness и readiness пробы
type HealthHandler struct {
	readiness *system.Readiness
	version   string
}

func NewHealthHandler(readiness *system.Readiness, version string) *HealthHandler {
	return &HealthHandler{readiness: readiness, version: version}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Readyz возвращает 503, если хотя бы одна зависимость не готова
func (h *HealthHandler) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.readiness == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"ready": true, "version": h.version})
		return
	}

	report := h.readiness.Check(r.Context())
	status := http.StatusOK
	if !report.Ready {
		status = http.StatusServiceUnavailable
	}

	middleware.WriteJSON(w, status, map[string]any{
		"ready":   report.Ready,
		"checks":  report.Checks,
		"version": h.version,
	})
}
