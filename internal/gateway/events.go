package gateway

import (
	"encoding/json"
)

// EventType identifies a real-time event. Every name is part of the wire
// contract with the browser clients; the router switches exhaustively over
// the client-sent set and drops anything else.
type EventType string

// Client -> server events.
const (
	EventJoin             EventType = "join"
	EventSubmitQuestion   EventType = "submitQuestion"
	EventRoundOne         EventType = "roundOne"
	EventRoundTwo         EventType = "roundTwo"
	EventClick            EventType = "click"
	EventTime             EventType = "time"
	EventDraw             EventType = "draw"
	EventDown             EventType = "down"
	EventErase            EventType = "erase"
	EventSegmentStart     EventType = "segmentStart"
	EventAnswer           EventType = "answer"
	EventUpdateScore      EventType = "updateScore"
	EventResetScore       EventType = "resetScore"
	EventNextButton       EventType = "handling-next-button"
	EventRedirectOthers   EventType = "redirectOthers"
	EventGenerateImage    EventType = "generateImage"
	EventSavedImages      EventType = "savedImages"
	EventStartStory       EventType = "startStory"
	EventSubmitStory      EventType = "submitStory"
	EventShowURL          EventType = "showUrl"
	EventNextRound        EventType = "nextRound"
	EventButtonClicked    EventType = "buttonClicked"
	EventFormSubmit       EventType = "formSubmit"
	EventUserJoined       EventType = "user_joined"
	EventStartTimer       EventType = "start_timer"
	EventRequestDrawing   EventType = "requestDrawingData"
	EventUserLeft         EventType = "user_left"
)

// Server -> client events.
const (
	EventFirstLoadQuestions EventType = "firstLoadQuestions"
	EventBroadcastAnswer    EventType = "broadcastAnswer"
	EventNotEnough          EventType = "notEnough"
	EventUpdateTimer        EventType = "updateTimer"
	EventDisplayTime        EventType = "displayTime"
	EventUpdateAnswer       EventType = "updateAnswer"
	EventLoadQuestions      EventType = "loadQuestions"
	EventScore              EventType = "score"
	EventRedirectedOthers   EventType = "redirectedOthers"
	EventTransferImage      EventType = "transferImage"
	EventCopyStory          EventType = "copyStory"
	EventShowingURL         EventType = "showingUrl"
	EventSubmittingStory    EventType = "submittingStory"
	EventUpdateUI           EventType = "updateUi"
	EventFillDetails        EventType = "fillDetails"
	EventUserList           EventType = "userList"
	EventInitialize         EventType = "initialize"
	EventOnDraw             EventType = "ondraw"
	EventOnDown             EventType = "ondown"
	EventOnErase            EventType = "onerase"
	EventRoundExpired       EventType = "roundExpired"
)

// Envelope is the wire frame for every real-time message in both
// directions. Data carries the event-specific payload untouched.
type Envelope struct {
	Event EventType       `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// RoomPayload is the minimal payload shape for events that only need
// room targeting; relays also decode into it to find the destination.
type RoomPayload struct {
	Room string `json:"room"`
}

// ClickPayload starts the visible countdown on room peers. StartTime is
// the number of seconds the round runs; when positive the gateway also
// arms a server-side round deadline.
type ClickPayload struct {
	Room      string `json:"room"`
	StartTime int    `json:"startTime,omitempty"`
}

// AnswerPayload mirrors one participant's answer selection to its peers.
type AnswerPayload struct {
	Room           string `json:"room"`
	SelectedAnswer string `json:"selectedAnswer"`
	IsCorrect      bool   `json:"isCorrect"`
	ButtonID       string `json:"buttonId"`
}

// NextButtonPayload advances the room's quiz to the next question.
type NextButtonPayload struct {
	Room                 string `json:"room"`
	CurrentQuestionIndex int    `json:"currentQuestionIndex"`
}

// NotEnoughPayload signals a failed minimum-participant gate. Not an
// error: the caller owns retry.
type NotEnoughPayload struct {
	NumUsers int `json:"numUsers"`
}

// UserJoinedPayload announces the connection's display name.
type UserJoinedPayload struct {
	Username string `json:"username"`
}

// RosterEntry is one row of the live-connection roster.
type RosterEntry struct {
	ID            string `json:"id"`
	Username      string `json:"username"`
	RemainingTime int    `json:"remainingTime"`
}

// mustEnvelope marshals an event and payload into a wire frame. Payload
// marshal failures are programming errors on our own types; they surface
// as an empty Data rather than a dropped frame.
func mustEnvelope(event EventType, payload any) ([]byte, error) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		data = b
	}
	return json.Marshal(Envelope{Event: event, Data: data})
}
