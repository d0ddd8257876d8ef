package gateway

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairboard/pairboard/internal/quiz"
)

type recordedEvent struct {
	Room  string
	Event string
}

// captureRecorder collects activity events for assertions.
type captureRecorder struct {
	events []recordedEvent
}

func (r *captureRecorder) Record(room, event string, _ any) {
	r.events = append(r.events, recordedEvent{Room: room, Event: event})
}

func newQuizFixture(t *testing.T, minParticipants int) (*ConnectionManager, *QuizCoordinator, *captureRecorder) {
	t.Helper()
	cm := newTestManager(t)
	bank, err := quiz.LoadBank("")
	require.NoError(t, err)
	recorder := &captureRecorder{}
	return cm, NewQuizCoordinator(cm, bank, minParticipants, recorder), recorder
}

func joinPair(t *testing.T, cm *ConnectionManager, qc *QuizCoordinator, room string) (*Conn, *Conn) {
	t.Helper()
	a := cm.NewConn("a", "alice", nil)
	b := cm.NewConn("b", "bob", nil)
	qc.HandleJoin(a, room)
	qc.HandleJoin(b, room)
	drainFrames(t, a)
	drainFrames(t, b)
	return a, b
}

func TestHandleJoinDeliversQuestions(t *testing.T) {
	cm, qc, recorder := newQuizFixture(t, 2)

	a := cm.NewConn("a", "alice", nil)
	qc.HandleJoin(a, "g1")

	frames := drainFrames(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, EventFirstLoadQuestions, frames[0].Event)

	var payload QuestionsPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
	assert.Len(t, payload.Questions, 3)
	assert.Equal(t, 0, payload.CurrentQuestionIndex)

	// A second joiner re-pushes questions to the whole room.
	b := cm.NewConn("b", "bob", nil)
	qc.HandleJoin(b, "g1")
	assert.Equal(t, []EventType{EventFirstLoadQuestions}, eventsOf(drainFrames(t, a)))
	assert.Equal(t, []EventType{EventFirstLoadQuestions}, eventsOf(drainFrames(t, b)))

	require.Len(t, recorder.events, 1)
	assert.Equal(t, recordedEvent{Room: "g1", Event: "room_opened"}, recorder.events[0])
}

func TestHandleRoundGate(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)

	a := cm.NewConn("a", "alice", nil)
	qc.HandleJoin(a, "g1")
	drainFrames(t, a)

	// Alone in the room: only the requester hears notEnough.
	qc.HandleRound(a, EventRoundOne, json.RawMessage(`{"room":"g1"}`))
	frames := drainFrames(t, a)
	require.Len(t, frames, 1)
	assert.Equal(t, EventNotEnough, frames[0].Event)

	var gate NotEnoughPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &gate))
	assert.Equal(t, 1, gate.NumUsers)

	// A peer arrives; the retry reaches the whole room under the same name.
	b := cm.NewConn("b", "bob", nil)
	qc.HandleJoin(b, "g1")
	drainFrames(t, a)
	drainFrames(t, b)

	qc.HandleRound(a, EventRoundOne, json.RawMessage(`{"room":"g1"}`))
	assert.Equal(t, []EventType{EventRoundOne}, eventsOf(drainFrames(t, a)))
	assert.Equal(t, []EventType{EventRoundOne}, eventsOf(drainFrames(t, b)))
}

func TestHandleRoundRoomIsolation(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	c := cm.NewConn("c", "carol", nil)
	d := cm.NewConn("d", "dave", nil)
	qc.HandleJoin(c, "g2")
	qc.HandleJoin(d, "g2")
	drainFrames(t, c)
	drainFrames(t, d)

	qc.HandleRound(a, EventRoundTwo, json.RawMessage(`{"room":"g1"}`))

	assert.NotEmpty(t, drainFrames(t, a))
	assert.NotEmpty(t, drainFrames(t, b))
	assert.Empty(t, drainFrames(t, c))
	assert.Empty(t, drainFrames(t, d))
}

func TestHandleAnswerMirrorsToPeers(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	qc.HandleAnswer(a, json.RawMessage(`{"room":"g1","answerIndex":2}`))

	assert.Empty(t, drainFrames(t, a), "sender must not hear its own answer")
	frames := drainFrames(t, b)
	require.Len(t, frames, 1)
	assert.Equal(t, EventUpdateAnswer, frames[0].Event)
	assert.JSONEq(t, `{"room":"g1","answerIndex":2}`, string(frames[0].Data))
}

func TestQuizProgressionAndScore(t *testing.T) {
	cm, qc, recorder := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	// Two correct answers for the sender.
	qc.HandleUpdateScore(a, json.RawMessage(`true`))
	qc.HandleUpdateScore(a, json.RawMessage(`false`))
	qc.HandleUpdateScore(a, json.RawMessage(`true`))

	// Mid-quiz advance: the whole room gets the next question.
	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":0}`))
	for _, conn := range []*Conn{a, b} {
		frames := drainFrames(t, conn)
		require.Len(t, frames, 1)
		assert.Equal(t, EventLoadQuestions, frames[0].Event)
	}

	// Past the last question: both sides receive the sender's score.
	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":3}`))
	for _, conn := range []*Conn{a, b} {
		frames := drainFrames(t, conn)
		require.Len(t, frames, 1, "conn %s", conn.ID)
		assert.Equal(t, EventScore, frames[0].Event)

		var result ScorePayload
		require.NoError(t, json.Unmarshal(frames[0].Data, &result))
		assert.Equal(t, 2, result.Score)
		assert.Len(t, result.Questions, 3)
	}

	assert.Contains(t, recorder.events, recordedEvent{Room: "g1", Event: "quiz_completed"})
}

func TestAdvanceNeverRegresses(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":2}`))
	drainFrames(t, a)
	drainFrames(t, b)

	// A lagging client's stale index is clamped to the room's progress.
	qc.HandleAdvance(b, json.RawMessage(`{"room":"g1","currentQuestionIndex":1}`))
	frames := drainFrames(t, a)
	require.Len(t, frames, 1)

	var payload QuestionsPayload
	require.NoError(t, json.Unmarshal(frames[0].Data, &payload))
	assert.Equal(t, 2, payload.CurrentQuestionIndex)
}

func TestAdvanceUnknownRoomDropped(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a := cm.NewConn("a", "alice", nil)
	cm.JoinRoom(a, "g1") // joined the room index but no quiz session

	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":0}`))
	assert.Empty(t, drainFrames(t, a))
}

func TestScoresArePerConnection(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	qc.HandleUpdateScore(a, json.RawMessage(`true`))
	qc.HandleUpdateScore(a, json.RawMessage(`true`))
	qc.HandleUpdateScore(b, json.RawMessage(`true`))

	scoreOf := func(conn *Conn) int {
		qc.HandleAdvance(conn, json.RawMessage(`{"room":"g1","currentQuestionIndex":3}`))
		frames := drainFrames(t, conn)
		require.NotEmpty(t, frames)
		var result ScorePayload
		require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &result))
		return result.Score
	}

	assert.Equal(t, 2, scoreOf(a))
	drainFrames(t, b)
	assert.Equal(t, 1, scoreOf(b))
}

func TestResetScore(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	qc.HandleUpdateScore(a, json.RawMessage(`true`))
	qc.HandleResetScore(a)

	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":3}`))
	frames := drainFrames(t, a)
	require.NotEmpty(t, frames)
	var result ScorePayload
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &result))
	assert.Equal(t, 0, result.Score)
	drainFrames(t, b)
}

func TestDropConnectionClearsScore(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 2)
	a, b := joinPair(t, cm, qc, "g1")

	qc.HandleUpdateScore(a, json.RawMessage(`true`))
	qc.DropConnection(a)

	// A fresh connection reusing the ID starts from zero.
	qc.HandleUpdateScore(b, json.RawMessage(`true`))
	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":3}`))
	frames := drainFrames(t, a)
	require.NotEmpty(t, frames)
	var result ScorePayload
	require.NoError(t, json.Unmarshal(frames[len(frames)-1].Data, &result))
	assert.Equal(t, 0, result.Score)
	drainFrames(t, b)
}

func TestDropRoomEndsSession(t *testing.T) {
	cm, qc, recorder := newQuizFixture(t, 2)
	a, _ := joinPair(t, cm, qc, "g1")

	qc.DropRoom("g1")
	assert.Contains(t, recorder.events, recordedEvent{Room: "g1", Event: "room_closed"})

	// With the session gone, advances are ignored.
	qc.HandleAdvance(a, json.RawMessage(`{"room":"g1","currentQuestionIndex":0}`))
	assert.Empty(t, drainFrames(t, a))
}

func TestInvalidPayloadsDropped(t *testing.T) {
	cm, qc, _ := newQuizFixture(t, 1)
	a := cm.NewConn("a", "alice", nil)
	qc.HandleJoin(a, "g1")
	drainFrames(t, a)

	tests := []struct {
		name string
		call func()
	}{
		{"round without room", func() { qc.HandleRound(a, EventRoundOne, json.RawMessage(`{}`)) }},
		{"round bad json", func() { qc.HandleRound(a, EventRoundOne, json.RawMessage(`nope`)) }},
		{"answer without room", func() { qc.HandleAnswer(a, json.RawMessage(`{"answerIndex":1}`)) }},
		{"advance bad json", func() { qc.HandleAdvance(a, json.RawMessage(`[`)) }},
		{"score bad json", func() { qc.HandleUpdateScore(a, json.RawMessage(`"yes"`)) }},
	}

	for i, tt := range tests {
		t.Run(fmt.Sprintf("%d_%s", i, tt.name), func(t *testing.T) {
			tt.call()
			assert.Empty(t, drainFrames(t, a))
		})
	}
}
