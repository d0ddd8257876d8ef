package gateway

import (
	"encoding/json"

	"github.com/rs/zerolog/log"
)

// Router decodes inbound frames and dispatches them across the
// coordinators. The event set is closed: the switch below covers every
// client event; anything else is dropped with a warning. Handlers are
// fire-and-forget, there is no acknowledgment channel back to senders.
type Router struct {
	cm     *ConnectionManager
	board  *Whiteboard
	quiz   *QuizCoordinator
	relay  *Relay
	timers *TimerCoordinator
}

// NewRouter wires the dispatcher to its coordinators.
func NewRouter(cm *ConnectionManager, board *Whiteboard, quiz *QuizCoordinator, relay *Relay, timers *TimerCoordinator) *Router {
	return &Router{cm: cm, board: board, quiz: quiz, relay: relay, timers: timers}
}

// Dispatch routes one raw frame from conn.
func (rt *Router) Dispatch(conn *Conn, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		log.Warn().
			Str("connection_id", conn.ID).
			Err(err).
			Msg("invalid frame, dropping")
		return
	}

	switch env.Event {
	case EventJoin:
		var payload RoomPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			log.Warn().Str("connection_id", conn.ID).Msg("invalid join payload, dropping")
			return
		}
		rt.quiz.HandleJoin(conn, payload.Room)

	case EventRoundOne, EventRoundTwo:
		rt.quiz.HandleRound(conn, env.Event, env.Data)

	case EventAnswer:
		rt.quiz.HandleAnswer(conn, env.Data)

	case EventUpdateScore:
		rt.quiz.HandleUpdateScore(conn, env.Data)

	case EventResetScore:
		rt.quiz.HandleResetScore(conn)

	case EventNextButton:
		rt.quiz.HandleAdvance(conn, env.Data)

	case EventClick:
		rt.timers.HandleClick(conn, env.Data)

	case EventDraw:
		rt.handleDraw(conn, env.Data)

	case EventDown:
		rt.handleDown(conn, env.Data)

	case EventErase:
		rt.handleErase(conn, env.Data)

	case EventSegmentStart:
		rt.handleSegmentStart(conn)

	case EventRequestDrawing:
		rt.cm.SendTo(conn, EventInitialize, rt.board.Snapshot(conn.Room()))

	case EventUserJoined:
		rt.handleUserJoined(conn, env.Data)

	case EventStartTimer:
		rt.handleStartTimer(conn, env.Data)

	case EventUserLeft:
		rt.HandleDisconnect(conn)

	// Turn-broadcast relays: room-scoped, sender excluded.
	case EventRedirectOthers:
		rt.relay.ToRoom(conn, EventRedirectedOthers, env.Data)
	case EventGenerateImage:
		rt.relay.ToRoom(conn, EventTransferImage, env.Data)
	case EventSavedImages:
		rt.relay.ToRoom(conn, EventSavedImages, env.Data)
	case EventStartStory:
		rt.relay.ToRoom(conn, EventCopyStory, env.Data)
	case EventSubmitStory:
		rt.relay.ToRoom(conn, EventSubmittingStory, env.Data)
	case EventShowURL:
		rt.relay.ToRoom(conn, EventShowingURL, env.Data)
	case EventNextRound:
		rt.relay.ToRoom(conn, EventNextRound, env.Data)
	case EventButtonClicked:
		rt.relay.ToRoom(conn, EventUpdateUI, env.Data)

	// Process-wide relays, sender excluded.
	case EventSubmitQuestion:
		rt.relay.ToAll(conn, EventBroadcastAnswer, env.Data)
	case EventFormSubmit:
		rt.relay.ToAll(conn, EventFillDetails, env.Data)
	case EventTime:
		rt.relay.ToAll(conn, EventDisplayTime, env.Data)

	default:
		log.Warn().
			Str("connection_id", conn.ID).
			Str("event", string(env.Event)).
			Msg("unknown event, dropping")
	}
}

// HandleConnect finishes registration: the fresh connection gets the
// current roster, everyone else hears about the updated list.
func (rt *Router) HandleConnect(conn *Conn) {
	rt.cm.SendTo(conn, EventUserList, rt.cm.Roster())
}

// HandleDisconnect removes the connection and rebroadcasts the roster.
func (rt *Router) HandleDisconnect(conn *Conn) {
	rt.quiz.DropConnection(conn)
	rt.cm.Unregister(conn)
	rt.cm.BroadcastRoster()
}

func (rt *Router) handleDraw(conn *Conn, data json.RawMessage) {
	room := conn.Room()
	if room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("draw without room, dropping")
		return
	}
	var ev DrawingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid draw payload, dropping")
		return
	}
	ev.Type = DrawingDraw
	ev.PathID = conn.ID
	rt.board.Append(room, ev)
	rt.cm.BroadcastRoom(room, conn.ID, EventOnDraw, ev)
}

func (rt *Router) handleDown(conn *Conn, data json.RawMessage) {
	room := conn.Room()
	if room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("down without room, dropping")
		return
	}
	var ev DrawingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid down payload, dropping")
		return
	}
	ev.Type = DrawingDown
	rt.board.Append(room, ev)
	rt.cm.BroadcastRoom(room, conn.ID, EventOnDown, ev)
}

func (rt *Router) handleErase(conn *Conn, data json.RawMessage) {
	room := conn.Room()
	if room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("erase without room, dropping")
		return
	}
	var ev DrawingEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid erase payload, dropping")
		return
	}
	ev.Type = DrawingErase
	rt.board.Append(room, ev)
	rt.cm.BroadcastRoom(room, conn.ID, EventOnErase, ev)
}

func (rt *Router) handleSegmentStart(conn *Conn) {
	room := conn.Room()
	if room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("segmentStart without room, dropping")
		return
	}
	ev := DrawingEvent{Type: DrawingSegmentStart}
	rt.board.Append(room, ev)
	rt.cm.BroadcastRoom(room, conn.ID, EventSegmentStart, ev)
}

// handleUserJoined records the announced display name and pushes the
// roster to everyone, plus the board replay to the announcer.
func (rt *Router) handleUserJoined(conn *Conn, data json.RawMessage) {
	var payload UserJoinedPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid user_joined payload, dropping")
		return
	}
	conn.SetUsername(payload.Username)
	rt.cm.BroadcastRoster()
	rt.cm.SendTo(conn, EventInitialize, rt.board.Snapshot(conn.Room()))
}

// handleStartTimer updates the announcer's remaining time on the roster.
func (rt *Router) handleStartTimer(conn *Conn, data json.RawMessage) {
	var seconds int
	if err := json.Unmarshal(data, &seconds); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid start_timer payload, dropping")
		return
	}
	conn.SetRemainingTime(seconds)
	rt.cm.BroadcastRoster()
}
