package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// TimerCoordinator handles round countdowns. The tick itself is
// client-local: the click relay tells peers to start counting from the
// same value, and the server keeps an authoritative one-shot deadline
// per room so late or reconnecting clients hear the round end.
type TimerCoordinator struct {
	cm    *ConnectionManager
	clock clockwork.Clock

	mu     sync.Mutex
	timers map[string]*roomTimer
}

type roomTimer struct {
	timer  clockwork.Timer
	cancel chan struct{}
}

// RoundExpiredPayload announces a server-side round deadline firing.
type RoundExpiredPayload struct {
	Room string `json:"room"`
}

// NewTimerCoordinator creates a coordinator on the given clock.
func NewTimerCoordinator(cm *ConnectionManager, clock clockwork.Clock) *TimerCoordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &TimerCoordinator{
		cm:     cm,
		clock:  clock,
		timers: make(map[string]*roomTimer),
	}
}

// HandleClick mirrors the countdown start to room peers and, when the
// payload carries a duration, arms the room's server-side deadline.
func (tc *TimerCoordinator) HandleClick(conn *Conn, data json.RawMessage) {
	var payload ClickPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid click payload, dropping")
		return
	}

	tc.cm.BroadcastRoom(payload.Room, conn.ID, EventUpdateTimer, data)

	if payload.StartTime > 0 {
		tc.ArmDeadline(payload.Room, time.Duration(payload.StartTime)*time.Second)
	}
}

// ArmDeadline schedules a one-shot deadline for room, atomically
// replacing any timer already running for it.
func (tc *TimerCoordinator) ArmDeadline(room string, d time.Duration) {
	rt := &roomTimer{
		timer:  tc.clock.NewTimer(d),
		cancel: make(chan struct{}),
	}

	tc.mu.Lock()
	if existing, exists := tc.timers[room]; exists {
		stopRoomTimer(existing)
	}
	tc.timers[room] = rt
	tc.mu.Unlock()

	go func() {
		select {
		case <-rt.timer.Chan():
		case <-rt.cancel:
			return
		}

		tc.mu.Lock()
		// A replacement may have raced the firing; only the current
		// timer for the room gets to end the round.
		if tc.timers[room] != rt {
			tc.mu.Unlock()
			return
		}
		delete(tc.timers, room)
		tc.mu.Unlock()

		tc.cm.BroadcastRoom(room, "", EventRoundExpired, RoundExpiredPayload{Room: room})
		log.Info().Str("room", room).Dur("duration", d).Msg("round deadline fired")
	}()

	log.Debug().Str("room", room).Dur("duration", d).Msg("armed round deadline")
}

// Cancel stops the room's deadline, if any. Called when a room empties.
func (tc *TimerCoordinator) Cancel(room string) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if rt, exists := tc.timers[room]; exists {
		stopRoomTimer(rt)
		delete(tc.timers, room)
	}
}

// stopRoomTimer stops the timer, drains its channel so nothing leaks,
// and releases the waiting goroutine.
func stopRoomTimer(rt *roomTimer) {
	if !rt.timer.Stop() {
		select {
		case <-rt.timer.Chan():
		default:
		}
	}
	close(rt.cancel)
}
