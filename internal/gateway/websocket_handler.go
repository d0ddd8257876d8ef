package gateway

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// WebSocketHandler upgrades HTTP requests into managed connections and
// runs their read/write pumps.
type WebSocketHandler struct {
	cm     *ConnectionManager
	router *Router
}

// NewWebSocketHandler creates the upgrade handler.
func NewWebSocketHandler(cm *ConnectionManager, router *Router) *WebSocketHandler {
	return &WebSocketHandler{cm: cm, router: router}
}

// HandleConnection upgrades the request and registers the connection.
// The username query parameter seeds the profile; user_joined can change
// it later.
func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := h.cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return
	}

	conn := h.cm.NewConn(uuid.New().String(), r.URL.Query().Get("username"), ws)

	go h.writePump(conn)
	go h.readPump(conn)

	h.router.HandleConnect(conn)
}

// HandleStats reports active room and connection counts.
func (h *WebSocketHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	rooms, conns := h.cm.Stats()
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]int{
		"rooms":       rooms,
		"connections": conns,
	})
}

// RegisterRoutes mounts the real-time endpoints.
func (h *WebSocketHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws", h.HandleConnection)
	mux.HandleFunc("/ws/stats", h.HandleStats)
}

// readPump reads frames and feeds the router until the peer goes away.
func (h *WebSocketHandler) readPump(conn *Conn) {
	defer func() {
		h.router.HandleDisconnect(conn)
		conn.ws.Close()
	}()

	cfg := h.cm.config
	conn.ws.SetReadLimit(cfg.MaxMessageSize)
	conn.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
	conn.ws.SetPongHandler(func(string) error {
		conn.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		return nil
	})

	for {
		_, raw, err := conn.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Str("connection_id", conn.ID).Msg("unexpected WebSocket close")
			}
			return
		}
		conn.ws.SetReadDeadline(time.Now().Add(cfg.ReadTimeout))
		h.router.Dispatch(conn, raw)
	}
}

// writePump drains the send buffer to the socket and keeps the
// connection alive with pings.
func (h *WebSocketHandler) writePump(conn *Conn) {
	cfg := h.cm.config
	ticker := time.NewTicker(cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.ws.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			conn.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if !ok {
				conn.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Str("connection_id", conn.ID).Msg("failed to write frame")
				return
			}
		case <-ticker.C:
			conn.ws.SetWriteDeadline(time.Now().Add(cfg.WriteTimeout))
			if err := conn.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
