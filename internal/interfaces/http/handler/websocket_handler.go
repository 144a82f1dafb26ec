package handler

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	wsInfra "github.com/dreschagin/fastqc-analyzer/internal/infrastructure/notification/websocket"
	"github.com/dreschagin/fastqc-analyzer/internal/interfaces/http/middleware"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

// WebSocketHandler подключает клиентов к ленте событий истории анализов
// Фильтр событий: ?types=analysis_completed,history_cleared
type WebSocketHandler struct {
	hub        *wsInfra.Hub
	logger     *logger.Logger
	origins    originPolicy
	authConfig middleware.AuthConfig
	upgrader   websocket.Upgrader
}

func NewWebSocketHandler(
	hub *wsInfra.Hub,
	allowedOrigins []string,
	authConfig middleware.AuthConfig,
	log *logger.Logger,
) *WebSocketHandler {
	h := &WebSocketHandler{
		hub:        hub,
		logger:     log,
		origins:    newOriginPolicy(allowedOrigins),
		authConfig: authConfig,
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return h.origins.allows(r.Header.Get("Origin")) },
	}
	return h
}

// HandleConnection проверяет доступ и подписку, затем переводит соединение в WebSocket
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.RequestIDFromContext(r.Context())

	if err := middleware.ValidateRequestAuth(r, h.authConfig); err != nil {
		if h.authConfig.OnFailure != nil {
			h.authConfig.OnFailure()
		}
		h.logger.Warn("WebSocket unauthorized", "remote_addr", r.RemoteAddr, "request_id", requestID)
		middleware.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	types, unknown := wsInfra.ParseEventTypes(r.URL.Query().Get("types"))
	if len(unknown) > 0 {
		middleware.WriteError(w, http.StatusBadRequest, "unknown event types: "+strings.Join(unknown, ","))
		return
	}

	// Upgrade сам отвечает клиенту при ошибке
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade rejected", "error", err.Error(), "request_id", requestID)
		return
	}

	client := wsInfra.NewClient(h.hub, conn, h.logger, types...)
	h.hub.Register(client)
	h.logger.Debug("WebSocket subscriber connected", "remote_addr", r.RemoteAddr, "types", types)

	go client.Serve()
}

// originPolicy - белый список Origin в форме scheme://host; "*" разрешает любой
type originPolicy struct {
	any     bool
	allowed map[string]struct{}
}

func newOriginPolicy(origins []string) originPolicy {
	p := originPolicy{allowed: make(map[string]struct{}, len(origins))}
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		switch origin {
		case "":
		case "*":
			p.any = true
		default:
			p.allowed[strings.ToLower(strings.TrimSuffix(origin, "/"))] = struct{}{}
		}
	}
	return p
}

// allows отклоняет запросы без Origin: лента предназначена для браузера
func (p originPolicy) allows(origin string) bool {
	parsed, err := url.Parse(strings.TrimSpace(origin))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false
	}
	if p.any {
		return true
	}
	_, ok := p.allowed[strings.ToLower(parsed.Scheme+"://"+parsed.Host)]
	return ok
}
