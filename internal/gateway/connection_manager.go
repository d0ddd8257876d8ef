package gateway

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// ConnectionManager owns every live connection and the room index derived
// from joins. Rooms hold weak references only; a connection is removed from
// its room the moment it unregisters.
type ConnectionManager struct {
	mu sync.RWMutex

	// conns is keyed by connection ID; order tracks insertion for the
	// roster snapshot (best-effort ordering, not a client contract).
	conns map[string]*Conn
	order []string

	// rooms maps room key -> connection ID -> connection.
	rooms map[string]map[string]*Conn

	upgrader websocket.Upgrader
	config   ConnectionConfig

	// onEmpty is invoked after the last member leaves a room.
	onEmpty func(room string)
}

// Conn represents one live WebSocket session and its lightweight profile.
type Conn struct {
	ID   string
	Send chan []byte

	manager *ConnectionManager
	ws      *websocket.Conn

	mu            sync.Mutex
	username      string
	remainingTime int
	room          string
	closed        bool

	ConnectedAt time.Time
}

// ConnectionConfig holds transport tuning for WebSocket connections.
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	SendBufferSize  int
	CheckOrigin     func(r *http.Request) bool
}

// DefaultConnectionConfig returns default WebSocket tuning.
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  64 * 1024,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		SendBufferSize:  256,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(config ConnectionConfig) *ConnectionManager {
	if config.SendBufferSize <= 0 {
		config.SendBufferSize = 256
	}
	return &ConnectionManager{
		conns: make(map[string]*Conn),
		rooms: make(map[string]map[string]*Conn),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config: config,
	}
}

// SetRoomEmptyHook registers a callback fired after a room loses its last
// member. Must be set before connections arrive.
func (cm *ConnectionManager) SetRoomEmptyHook(fn func(room string)) {
	cm.onEmpty = fn
}

// NewConn creates and registers a connection. ws may be nil in tests; the
// pumps are only started by the WebSocket handler.
func (cm *ConnectionManager) NewConn(id, usernameHint string, ws *websocket.Conn) *Conn {
	conn := &Conn{
		ID:          id,
		Send:        make(chan []byte, cm.config.SendBufferSize),
		manager:     cm,
		ws:          ws,
		username:    usernameHint,
		ConnectedAt: time.Now(),
	}

	cm.mu.Lock()
	cm.conns[id] = conn
	cm.order = append(cm.order, id)
	cm.mu.Unlock()

	log.Info().
		Str("connection_id", id).
		Str("username", usernameHint).
		Msg("connection registered")
	return conn
}

// Unregister removes a connection from the registry and from its room.
func (cm *ConnectionManager) Unregister(conn *Conn) {
	cm.mu.Lock()
	if _, exists := cm.conns[conn.ID]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(cm.conns, conn.ID)
	for i, id := range cm.order {
		if id == conn.ID {
			cm.order = append(cm.order[:i], cm.order[i+1:]...)
			break
		}
	}
	emptied := cm.leaveRoomLocked(conn)
	cm.mu.Unlock()

	conn.mu.Lock()
	conn.closed = true
	conn.mu.Unlock()
	close(conn.Send)

	if emptied != "" && cm.onEmpty != nil {
		cm.onEmpty(emptied)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("username", conn.Username()).
		Msg("connection unregistered")
}

// JoinRoom moves the connection into room; last join wins.
func (cm *ConnectionManager) JoinRoom(conn *Conn, room string) {
	cm.mu.Lock()
	emptied := cm.leaveRoomLocked(conn)
	if cm.rooms[room] == nil {
		cm.rooms[room] = make(map[string]*Conn)
	}
	cm.rooms[room][conn.ID] = conn
	count := len(cm.rooms[room])
	cm.mu.Unlock()

	conn.mu.Lock()
	conn.room = room
	conn.mu.Unlock()

	if emptied != "" && emptied != room && cm.onEmpty != nil {
		cm.onEmpty(emptied)
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("room", room).
		Int("members", count).
		Msg("joined room")
}

// leaveRoomLocked detaches conn from its current room. Returns the room
// key if the room became empty and was removed. Caller holds cm.mu.
func (cm *ConnectionManager) leaveRoomLocked(conn *Conn) string {
	conn.mu.Lock()
	room := conn.room
	conn.room = ""
	conn.mu.Unlock()

	if room == "" {
		return ""
	}
	members, exists := cm.rooms[room]
	if !exists {
		return ""
	}
	delete(members, conn.ID)
	if len(members) == 0 {
		delete(cm.rooms, room)
		return room
	}
	return ""
}

// RoomCount returns the live membership of room at this instant.
func (cm *ConnectionManager) RoomCount(room string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.rooms[room])
}

// Roster returns a snapshot of every live connection's profile in
// registry insertion order.
func (cm *ConnectionManager) Roster() []RosterEntry {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	roster := make([]RosterEntry, 0, len(cm.order))
	for _, id := range cm.order {
		conn, exists := cm.conns[id]
		if !exists {
			continue
		}
		conn.mu.Lock()
		roster = append(roster, RosterEntry{
			ID:            conn.ID,
			Username:      conn.username,
			RemainingTime: conn.remainingTime,
		})
		conn.mu.Unlock()
	}
	return roster
}

// SendTo delivers an event to a single connection.
func (cm *ConnectionManager) SendTo(conn *Conn, event EventType, payload any) {
	data, err := mustEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("failed to marshal event")
		return
	}
	cm.deliver([]*Conn{conn}, data, event)
}

// BroadcastRoom fans an event out to every member of room. excludeID
// names a connection to skip, usually the sender; pass "" to include all.
func (cm *ConnectionManager) BroadcastRoom(room, excludeID string, event EventType, payload any) {
	cm.mu.RLock()
	members := cm.rooms[room]
	targets := make([]*Conn, 0, len(members))
	for id, conn := range members {
		if id == excludeID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	// Relays to an empty or unknown room are no-ops, never errors.
	if len(targets) == 0 {
		return
	}

	data, err := mustEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("failed to marshal event")
		return
	}
	cm.deliver(targets, data, event)
}

// BroadcastAll fans an event out process-wide, skipping excludeID.
func (cm *ConnectionManager) BroadcastAll(excludeID string, event EventType, payload any) {
	cm.mu.RLock()
	targets := make([]*Conn, 0, len(cm.conns))
	for id, conn := range cm.conns {
		if id == excludeID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	if len(targets) == 0 {
		return
	}

	data, err := mustEnvelope(event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", string(event)).Msg("failed to marshal event")
		return
	}
	cm.deliver(targets, data, event)
}

// deliver writes one marshaled frame to each target. A connection with a
// full send buffer is slow or dead and gets dropped.
func (cm *ConnectionManager) deliver(targets []*Conn, data []byte, event EventType) {
	for _, conn := range targets {
		if conn.trySend(data) {
			continue
		}
		log.Warn().
			Str("connection_id", conn.ID).
			Str("event", string(event)).
			Msg("send buffer full, closing connection")
		cm.Unregister(conn)
		if conn.ws != nil {
			conn.ws.Close()
		}
	}
}

// trySend queues a frame without blocking. Frames for an already
// unregistered connection are dropped silently; false means the buffer
// is full and the connection should be torn down.
func (c *Conn) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return true
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// BroadcastRoster sends the full roster to every live connection. Every
// roster mutation triggers this; it is deliberately process-wide.
func (cm *ConnectionManager) BroadcastRoster() {
	cm.BroadcastAll("", EventUserList, cm.Roster())
}

// Stats reports active room and connection counts.
func (cm *ConnectionManager) Stats() (rooms, conns int) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.rooms), len(cm.conns)
}

// Username returns the connection's current display name.
func (c *Conn) Username() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.username
}

// SetUsername updates the display name announced via user_joined.
func (c *Conn) SetUsername(name string) {
	c.mu.Lock()
	c.username = name
	c.mu.Unlock()
}

// RemainingTime returns the connection's announced countdown seconds.
func (c *Conn) RemainingTime() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingTime
}

// SetRemainingTime updates the countdown seconds shown on the roster.
func (c *Conn) SetRemainingTime(seconds int) {
	c.mu.Lock()
	c.remainingTime = seconds
	c.mu.Unlock()
}

// Room returns the room this connection last joined, or "".
func (c *Conn) Room() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

