package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/contextlog/internal/common"
	"github.com/ternarybob/contextlog/internal/interfaces"
	"golang.org/x/time/rate"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Browser extensions connect from their own origin
	},
}

const writeTimeout = 5 * time.Second

// WSMessage is the envelope for every pushed message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// StatusUpdate is sent to each client on connect
type StatusUpdate struct {
	Service          string `json:"service"`
	Version          string `json:"version"`
	ServerInstanceID string `json:"serverInstanceId"`
}

// WebSocketHandler pushes pipeline events to connected clients
type WebSocketHandler struct {
	logger           arbor.ILogger
	clients          map[*websocket.Conn]*sync.Mutex
	mu               sync.RWMutex
	eventService     interfaces.EventService
	queueThrottler   *rate.Limiter
	allowedEvents    map[string]bool
	serverInstanceID string
}

// NewWebSocketHandler creates the handler and subscribes it to eventService
// when one is given
func NewWebSocketHandler(eventService interfaces.EventService, logger arbor.ILogger, config *common.WebSocketConfig) *WebSocketHandler {
	h := &WebSocketHandler{
		logger:           logger,
		clients:          make(map[*websocket.Conn]*sync.Mutex),
		eventService:     eventService,
		allowedEvents:    make(map[string]bool),
		serverInstanceID: uuid.New().String(),
	}

	if config != nil {
		for _, eventType := range config.AllowedEvents {
			h.allowedEvents[eventType] = true
		}
		if config.Throttle != "" {
			if interval, err := time.ParseDuration(config.Throttle); err == nil && interval > 0 {
				h.queueThrottler = rate.NewLimiter(rate.Every(interval), 1)
			} else {
				logger.Warn().Str("throttle", config.Throttle).Msg("Invalid websocket throttle, queue updates are not throttled")
			}
		}
	}

	if eventService != nil {
		h.SubscribeToEvents()
	}

	return h
}

// HandleWebSocket upgrades the connection and keeps it open until the
// client goes away
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to upgrade WebSocket connection")
		return
	}

	h.mu.Lock()
	h.clients[conn] = &sync.Mutex{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Debug().Int("clients", count).Msg("WebSocket client connected")

	h.send(conn, WSMessage{
		Type: "status",
		Payload: StatusUpdate{
			Service:          "ONLINE",
			Version:          common.GetVersion(),
			ServerInstanceID: h.serverInstanceID,
		},
	})

	defer func() {
		h.mu.Lock()
		delete(h.clients, conn)
		remaining := len(h.clients)
		h.mu.Unlock()

		conn.Close()
		h.logger.Debug().Int("clients", remaining).Msg("WebSocket client disconnected")
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn().Err(err).Msg("WebSocket error")
			}
			return
		}
	}
}

// ClientCount returns the number of connected clients
func (h *WebSocketHandler) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every connected client
func (h *WebSocketHandler) Broadcast(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	mutexes := make([]*sync.Mutex, 0, len(h.clients))
	for conn, mutex := range h.clients {
		conns = append(conns, conn)
		mutexes = append(mutexes, mutex)
	}
	h.mu.RUnlock()

	for i, conn := range conns {
		if err := writeLocked(conn, mutexes[i], data); err != nil {
			h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send to websocket client")
		}
	}
}

func (h *WebSocketHandler) send(conn *websocket.Conn, msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error().Err(err).Str("type", msg.Type).Msg("Failed to marshal websocket message")
		return
	}

	h.mu.RLock()
	mutex := h.clients[conn]
	h.mu.RUnlock()
	if mutex == nil {
		return
	}
	if err := writeLocked(conn, mutex, data); err != nil {
		h.logger.Warn().Err(err).Str("type", msg.Type).Msg("Failed to send to websocket client")
	}
}

func writeLocked(conn *websocket.Conn, mutex *sync.Mutex, data []byte) error {
	mutex.Lock()
	defer mutex.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// SubscribeToEvents forwards pipeline events to clients. Queue-level events
// are throttled; results are always delivered.
func (h *WebSocketHandler) SubscribeToEvents() {
	for _, eventType := range interfaces.AllEventTypes() {
		eventType := eventType
		if len(h.allowedEvents) > 0 && !h.allowedEvents[string(eventType)] {
			continue
		}

		throttled := eventType == interfaces.EventJobEnqueued || eventType == interfaces.EventDrainFinished
		err := h.eventService.Subscribe(eventType, func(ctx context.Context, event interfaces.Event) error {
			if throttled && h.queueThrottler != nil && !h.queueThrottler.Allow() {
				return nil
			}
			h.Broadcast(WSMessage{Type: messageType(event.Type), Payload: event.Payload})
			return nil
		})
		if err != nil {
			h.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("Failed to subscribe websocket handler")
		}
	}
}

// messageType maps an event to the message type clients listen for
func messageType(eventType interfaces.EventType) string {
	switch eventType {
	case interfaces.EventResultSaved:
		return "result"
	case interfaces.EventJobRetry, interfaces.EventJobFailed:
		return "job_status"
	case interfaces.EventJobEnqueued, interfaces.EventDrainFinished:
		return "queue"
	case interfaces.EventSessionChange:
		return "session"
	}
	return string(eventType)
}
