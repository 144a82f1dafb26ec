package http

import (
	"net/http"

	"github.com/dreschagin/fastqc-analyzer/internal/infrastructure/observability/metrics"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/handler"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"
	"github.com/dreschagin/fastqc-analyzer/pkg/config"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// Router настраивает маршруты приложения
type Router struct {
	mux              *http.ServeMux
	analysisHandler  *handler.AnalysisHandler
	websocketHandler *handler.WebSocketHandler
	authAPIHandler   *handler.AuthAPIHandler
	healthHandler    *handler.HealthHandler
	metrics          *metrics.Metrics
	rateLimiter      *middleware.IPRateLimiter
	security         config.SecurityConfig
	logger           *logger.Logger
}

// NewRouter создает новый router; metrics и rateLimiter необязательны
func NewRouter(
	analysisHandler *handler.AnalysisHandler,
	websocketHandler *handler.WebSocketHandler,
	authAPIHandler *handler.AuthAPIHandler,
	healthHandler *handler.HealthHandler,
	metrics *metrics.Metrics,
	rateLimiter *middleware.IPRateLimiter,
	security config.SecurityConfig,
	logger *logger.Logger,
) *Router {
	return &Router{
		mux:              http.NewServeMux(),
		analysisHandler:  analysisHandler,
		websocketHandler: websocketHandler,
		authAPIHandler:   authAPIHandler,
		healthHandler:    healthHandler,
		metrics:          metrics,
		rateLimiter:      rateLimiter,
		security:         security,
		logger:           logger,
	}
}

// Setup настраивает все маршруты
func (rt *Router) Setup() http.Handler {
	// Пробы и метрики доступны без авторизации
	rt.mux.HandleFunc("GET /healthz", rt.healthHandler.Healthz)
	rt.mux.HandleFunc("GET /readyz", rt.healthHandler.Readyz)
	if rt.metrics != nil {
		rt.mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	authConfig := rt.AuthConfig()
	auth := middleware.Auth(authConfig, rt.logger)

	protected := func(h http.HandlerFunc) http.Handler {
		return auth(h)
	}
	limited := func(h http.HandlerFunc) http.Handler {
		if rt.rateLimiter == nil {
			return auth(h)
		}
		return middleware.RateLimit(rt.rateLimiter)(auth(h))
	}

	// WebSocket проверяет токен сам, чтобы принять его из query string
	rt.mux.HandleFunc("GET /ws", rt.websocketHandler.HandleConnection)

	rt.mux.HandleFunc("POST /api/v1/auth/login", rt.authAPIHandler.Login)
	rt.mux.HandleFunc("POST /api/v1/auth/logout", rt.authAPIHandler.Logout)
	rt.mux.HandleFunc("GET /api/v1/auth/status", rt.authAPIHandler.Status)

	rt.mux.Handle("POST /api/v1/analyses", limited(rt.analysisHandler.Create))
	rt.mux.Handle("GET /api/v1/analyses", protected(rt.analysisHandler.List))
	rt.mux.Handle("DELETE /api/v1/analyses", protected(rt.analysisHandler.Clear))
	rt.mux.Handle("GET /api/v1/analyses/{id}", protected(rt.analysisHandler.Get))
	rt.mux.Handle("DELETE /api/v1/analyses/{id}", protected(rt.analysisHandler.Delete))
	rt.mux.Handle("GET /api/v1/analyses/{id}/reports", protected(rt.analysisHandler.ListReports))

	// Применяем middleware (последний добавленный выполняется первым)
	var handler http.Handler = rt.mux
	handler = middleware.Compression(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = middleware.Logger(rt.logger)(handler)
	handler = middleware.RequestID(handler)
	handler = middleware.Recovery(rt.logger)(handler)

	return handler
}

// AuthConfig собирает настройки авторизации, общие для middleware и handlers
func (rt *Router) AuthConfig() middleware.AuthConfig {
	return NewAuthConfig(rt.security, rt.metrics)
}

// NewAuthConfig связывает настройки безопасности со счетчиком отказов
func NewAuthConfig(security config.SecurityConfig, m *metrics.Metrics) middleware.AuthConfig {
	cfg := middleware.AuthConfig{
		Enabled:     security.AuthEnabled,
		BearerToken: security.AuthToken,
	}
	if m != nil {
		cfg.OnFailure = m.AuthFailures.Inc
	}
	return cfg
}
