package websocket

import (
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dreschagin/fastqc-analyzer/internal/application/dto"
	"github.com/dreschagin/fastqc-analyzer/pkg/logger"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// Лента только на чтение: от клиента ждем лишь control frames
	maxMessageSize = 512
	sendBufferSize = 64
)

// KnownEventTypes - типы событий, на которые можно подписаться
var KnownEventTypes = []string{
	dto.EventAnalysisCompleted,
	dto.EventAnalysisDeleted,
	dto.EventHistoryCleared,
}

// Client - подписчик ленты событий истории анализов
type Client struct {
	conn   *websocket.Conn
	hub    *Hub
	send   chan Message
	types  map[string]struct{}
	logger *logger.Logger
}

// NewClient создает подписчика. Пустой список types означает все события
func NewClient(hub *Hub, conn *websocket.Conn, log *logger.Logger, types ...string) *Client {
	var filter map[string]struct{}
	if len(types) > 0 {
		filter = make(map[string]struct{}, len(types))
		for _, t := range types {
			filter[t] = struct{}{}
		}
	}
	return &Client{
		conn:   conn,
		hub:    hub,
		send:   make(chan Message, sendBufferSize),
		types:  filter,
		logger: log,
	}
}

// ParseEventTypes разбирает список типов через запятую и возвращает неизвестные
func ParseEventTypes(raw string) (types []string, unknown []string) {
	for _, part := range strings.Split(raw, ",") {
		t := strings.TrimSpace(part)
		if t == "" {
			continue
		}
		if isKnownEventType(t) {
			types = append(types, t)
		} else {
			unknown = append(unknown, t)
		}
	}
	return types, unknown
}

func isKnownEventType(t string) bool {
	for _, known := range KnownEventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Accepts сообщает, подписан ли клиент на событие
func (c *Client) Accepts(eventType string) bool {
	if c.types == nil {
		return true
	}
	_, ok := c.types[eventType]
	return ok
}

// Serve обслуживает соединение до его закрытия. Блокирует вызывающего
func (c *Client) Serve() {
	go c.writeLoop()
	c.readLoop()
}

func (c *Client) readLoop() {
	defer func() {
		c.hub.Unregister(c)
		c.closeConn()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error("WebSocket set read deadline error", err)
		return
	}

	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("WebSocket subscriber dropped", "error", err.Error())
			}
			return
		}
	}
}

func (c *Client) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				// hub отключил клиента
				_ = c.write(func() error {
					return c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				})
				return
			}
			if err := c.write(func() error { return c.conn.WriteJSON(msg) }); err != nil {
				c.logger.Warn("WebSocket write failed", "type", msg.Type, "error", err.Error())
				return
			}
		case <-ticker.C:
			if err := c.write(func() error { return c.conn.WriteMessage(websocket.PingMessage, nil) }); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(fn func() error) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return fn()
}

func (c *Client) closeConn() {
	// Повторное закрытие из второго цикла ожидаемо
	_ = c.conn.Close()
}
