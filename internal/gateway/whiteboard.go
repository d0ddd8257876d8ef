package gateway

import (
	"sync"
)

// DrawingKind discriminates whiteboard log entries.
type DrawingKind string

const (
	DrawingDraw         DrawingKind = "draw"
	DrawingDown         DrawingKind = "down"
	DrawingErase        DrawingKind = "erase"
	DrawingSegmentStart DrawingKind = "segmentStart"
)

// DrawingEvent is one entry in a room's whiteboard log. Events are
// position/color tuples, not deltas, so replaying the same log twice
// yields the same canvas.
type DrawingEvent struct {
	Type      DrawingKind `json:"type"`
	X         float64     `json:"x,omitempty"`
	Y         float64     `json:"y,omitempty"`
	Color     string      `json:"color,omitempty"`
	LineWidth float64     `json:"lineWidth,omitempty"`
	Size      float64     `json:"size,omitempty"`
	PathID    string      `json:"pathId,omitempty"`
}

// Whiteboard keeps an append-only drawing log per room. Logs are never
// compacted; state is volatile and scoped to a single server run.
type Whiteboard struct {
	mu   sync.Mutex
	logs map[string][]DrawingEvent
}

// NewWhiteboard creates an empty whiteboard store.
func NewWhiteboard() *Whiteboard {
	return &Whiteboard{logs: make(map[string][]DrawingEvent)}
}

// Append adds an event to room's log. Replay order is arrival order.
func (w *Whiteboard) Append(room string, event DrawingEvent) {
	w.mu.Lock()
	w.logs[room] = append(w.logs[room], event)
	w.mu.Unlock()
}

// Snapshot returns a copy of room's full log in order.
func (w *Whiteboard) Snapshot(room string) []DrawingEvent {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := w.logs[room]
	out := make([]DrawingEvent, len(events))
	copy(out, events)
	return out
}
