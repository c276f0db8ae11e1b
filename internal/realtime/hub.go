package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// RefreshEvent tells a connected client that upstream data changed and a
// re-fetch is worthwhile. No payload travels over the socket; clients pull
// through the regular HTTP surface.
type RefreshEvent struct {
	Kind    string    `json:"kind"`
	Subtree string    `json:"subtree,omitempty"`
	At      time.Time `json:"at"`
}

// ClientMetrics receives connection gauge updates; nil disables them.
type ClientMetrics interface {
	WebsocketClientConnected(delta int)
}

// Hub fans refresh hints out to websocket clients, keyed by user id. One
// user may hold several connections (multiple tabs).
type Hub struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	metrics  ClientMetrics

	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

// NewHub constructs a Hub.
func NewHub(logger *zap.Logger, metrics ClientMetrics) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Auth happens via the JWT middleware before the upgrade.
				return true
			},
		},
		logger:  logger,
		metrics: metrics,
		conns:   make(map[string]map[*websocket.Conn]struct{}),
	}
}

// HandleConnection upgrades the request and blocks until the client
// disconnects. Inbound frames are discarded; the socket is push-only.
func (h *Hub) HandleConnection(w http.ResponseWriter, r *http.Request, userID string) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	h.register(userID, conn)
	defer h.unregister(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return nil
		}
	}
}

// Notify pushes a refresh event to every connection of one user.
func (h *Hub) Notify(userID string, event RefreshEvent) {
	h.mu.RLock()
	targets := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	for _, conn := range targets {
		h.send(userID, conn, event)
	}
}

// Broadcast pushes a refresh event to every connected client.
func (h *Hub) Broadcast(event RefreshEvent) {
	h.mu.RLock()
	type target struct {
		userID string
		conn   *websocket.Conn
	}
	targets := make([]target, 0)
	for userID, conns := range h.conns {
		for conn := range conns {
			targets = append(targets, target{userID: userID, conn: conn})
		}
	}
	h.mu.RUnlock()

	for _, tg := range targets {
		h.send(tg.userID, tg.conn, event)
	}
}

// Clients reports the number of open connections.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, conns := range h.conns {
		total += len(conns)
	}
	return total
}

func (h *Hub) send(userID string, conn *websocket.Conn, event RefreshEvent) {
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(event); err != nil {
		h.logger.Debug("websocket write failed, dropping client", zap.String("user_id", userID), zap.Error(err))
		h.unregister(userID, conn)
		_ = conn.Close()
	}
}

func (h *Hub) register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
	h.mu.Unlock()
	if h.metrics != nil {
		h.metrics.WebsocketClientConnected(1)
	}
	h.logger.Debug("websocket client connected", zap.String("user_id", userID))
}

func (h *Hub) unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	conns, ok := h.conns[userID]
	if ok {
		if _, present := conns[conn]; !present {
			ok = false
		}
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.conns, userID)
		}
	}
	h.mu.Unlock()
	if ok && h.metrics != nil {
		h.metrics.WebsocketClientConnected(-1)
	}
}
