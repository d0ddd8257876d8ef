package gateway

import (
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/pairboard/pairboard/internal/models"
	"github.com/pairboard/pairboard/internal/quiz"
)

// Recorder receives room lifecycle events for the activity feed.
// Implementations must not block; delivery is best-effort.
type Recorder interface {
	Record(room string, event string, payload any)
}

// NopRecorder discards activity events.
type NopRecorder struct{}

func (NopRecorder) Record(string, string, any) {}

// QuizCoordinator drives per-room quiz sessions: question delivery,
// round-readiness gating, answer mirroring, advancement and scoring.
// Progress and score are per room, per connection; the server owns the
// question index and clients only move it forward.
type QuizCoordinator struct {
	cm              *ConnectionManager
	bank            *quiz.Bank
	minParticipants int
	recorder        Recorder

	mu       sync.Mutex
	sessions map[string]*quizSession
}

// quizSession is one room's quiz state. Created on the first join,
// dropped when the room empties.
type quizSession struct {
	index  int
	scores map[string]int
}

// QuestionsPayload is the loadQuestions/firstLoadQuestions wire shape.
type QuestionsPayload struct {
	Questions            []models.Question `json:"questions"`
	CurrentQuestionIndex int               `json:"currentQuestionIndex"`
}

// ScorePayload closes a quiz session for a room.
type ScorePayload struct {
	Score     int               `json:"score"`
	Questions []models.Question `json:"questions"`
}

// NewQuizCoordinator creates a coordinator over the fixed question bank.
func NewQuizCoordinator(cm *ConnectionManager, bank *quiz.Bank, minParticipants int, recorder Recorder) *QuizCoordinator {
	if minParticipants <= 0 {
		minParticipants = 2
	}
	if recorder == nil {
		recorder = NopRecorder{}
	}
	return &QuizCoordinator{
		cm:              cm,
		bank:            bank,
		minParticipants: minParticipants,
		recorder:        recorder,
		sessions:        make(map[string]*quizSession),
	}
}

// HandleJoin moves the connection into the room and pushes the full
// question list to every member, the joiner included.
func (qc *QuizCoordinator) HandleJoin(conn *Conn, room string) {
	if room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("join without room, dropping")
		return
	}
	qc.cm.JoinRoom(conn, room)

	qc.mu.Lock()
	session, exists := qc.sessions[room]
	if !exists {
		session = &quizSession{scores: make(map[string]int)}
		qc.sessions[room] = session
	}
	qc.mu.Unlock()

	if !exists {
		qc.recorder.Record(room, "room_opened", nil)
	}

	qc.cm.BroadcastRoom(room, "", EventFirstLoadQuestions, QuestionsPayload{
		Questions:            qc.bank.Questions(),
		CurrentQuestionIndex: qc.sessionIndex(room),
	})
}

// HandleRound applies the minimum-participant gate. With enough members
// the round event goes to the whole room; otherwise only the requester
// hears notEnough with the live count. No state changes either way, the
// caller owns retry.
func (qc *QuizCoordinator) HandleRound(conn *Conn, event EventType, data json.RawMessage) {
	var payload RoomPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn().Str("connection_id", conn.ID).Str("event", string(event)).Msg("invalid round payload, dropping")
		return
	}

	count := qc.cm.RoomCount(payload.Room)
	if count < qc.minParticipants {
		log.Info().
			Str("room", payload.Room).
			Int("members", count).
			Int("required", qc.minParticipants).
			Msg("not enough participants for round")
		qc.cm.SendTo(conn, EventNotEnough, NotEnoughPayload{NumUsers: count})
		return
	}

	qc.cm.BroadcastRoom(payload.Room, "", event, json.RawMessage(data))
	qc.recorder.Record(payload.Room, "round_started", map[string]any{
		"round":   string(event),
		"members": count,
	})
}

// HandleAnswer mirrors one participant's selection to its room peers so
// their UI follows the choice. The sender never hears its own echo.
func (qc *QuizCoordinator) HandleAnswer(conn *Conn, data json.RawMessage) {
	var payload AnswerPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid answer payload, dropping")
		return
	}
	qc.cm.BroadcastRoom(payload.Room, conn.ID, EventUpdateAnswer, json.RawMessage(data))
}

// HandleUpdateScore bumps the sender's score in its room session when
// the submitted answer was correct. Scores never decrease mid-session.
func (qc *QuizCoordinator) HandleUpdateScore(conn *Conn, data json.RawMessage) {
	var isCorrect bool
	if err := json.Unmarshal(data, &isCorrect); err != nil {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid updateScore payload, dropping")
		return
	}
	if !isCorrect {
		return
	}

	room := conn.Room()
	qc.mu.Lock()
	defer qc.mu.Unlock()
	session, exists := qc.sessions[room]
	if !exists {
		return
	}
	session.scores[conn.ID]++
}

// HandleResetScore zeroes the sender's score ahead of a fresh session.
func (qc *QuizCoordinator) HandleResetScore(conn *Conn) {
	room := conn.Room()
	qc.mu.Lock()
	defer qc.mu.Unlock()
	if session, exists := qc.sessions[room]; exists {
		session.scores[conn.ID] = 0
	}
}

// HandleAdvance moves the room to the next question or, past the last
// one, closes the session with a score event. The score goes to the
// sender directly and to the rest of the room, so the sender always
// receives it despite the usual sender exclusion.
func (qc *QuizCoordinator) HandleAdvance(conn *Conn, data json.RawMessage) {
	var payload NextButtonPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.Room == "" {
		log.Warn().Str("connection_id", conn.ID).Msg("invalid next-button payload, dropping")
		return
	}

	qc.mu.Lock()
	session, exists := qc.sessions[payload.Room]
	if !exists {
		qc.mu.Unlock()
		return
	}

	// The index only moves forward. A stale or replayed advance from a
	// lagging client never regresses the room.
	index := payload.CurrentQuestionIndex
	if index < session.index {
		index = session.index
	}
	if index > qc.bank.Len() {
		index = qc.bank.Len()
	}
	session.index = index
	score := session.scores[conn.ID]
	qc.mu.Unlock()

	if index < qc.bank.Len() {
		qc.cm.BroadcastRoom(payload.Room, "", EventLoadQuestions, QuestionsPayload{
			Questions:            qc.bank.Questions(),
			CurrentQuestionIndex: index,
		})
		return
	}

	result := ScorePayload{Score: score, Questions: qc.bank.Questions()}
	qc.cm.SendTo(conn, EventScore, result)
	qc.cm.BroadcastRoom(payload.Room, conn.ID, EventScore, result)
	qc.recorder.Record(payload.Room, "quiz_completed", map[string]any{
		"score":     score,
		"questions": qc.bank.Len(),
	})
}

// DropConnection clears per-connection quiz state on disconnect.
func (qc *QuizCoordinator) DropConnection(conn *Conn) {
	room := conn.Room()
	if room == "" {
		return
	}
	qc.mu.Lock()
	if session, exists := qc.sessions[room]; exists {
		delete(session.scores, conn.ID)
	}
	qc.mu.Unlock()
}

// DropRoom tears down the session once the room has emptied.
func (qc *QuizCoordinator) DropRoom(room string) {
	qc.mu.Lock()
	_, exists := qc.sessions[room]
	delete(qc.sessions, room)
	qc.mu.Unlock()

	if exists {
		qc.recorder.Record(room, "room_closed", nil)
		log.Info().Str("room", room).Msg("quiz session dropped")
	}
}

func (qc *QuizCoordinator) sessionIndex(room string) int {
	qc.mu.Lock()
	defer qc.mu.Unlock()
	if session, exists := qc.sessions[room]; exists {
		return session.index
	}
	return 0
}
