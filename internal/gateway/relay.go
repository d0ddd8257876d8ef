package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Relay is the generic fan-out primitive behind chat Q&A hand-off,
// image-generation hand-off, story co-editing and UI-state mirroring:
// whatever one participant does, mirror to the others. Payloads pass
// through untouched; only the room key is decoded for targeting.
type Relay struct {
	cm *ConnectionManager
}

// NewRelay creates a relay over the connection manager.
func NewRelay(cm *ConnectionManager) *Relay {
	return &Relay{cm: cm}
}

// ToRoom forwards data to every member of the payload's room except the
// sender. A missing or unknown room makes this a silent no-op.
func (r *Relay) ToRoom(conn *Conn, out EventType, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn().
			Str("connection_id", conn.ID).
			Str("event", string(out)).
			Msg("relay payload without room, dropping")
		return
	}
	r.cm.BroadcastRoom(payload.Room, conn.ID, out, data)
}

// ToAll forwards data to every connection process-wide except the sender.
func (r *Relay) ToAll(conn *Conn, out EventType, data json.RawMessage) {
	r.cm.BroadcastAll(conn.ID, out, data)
}
