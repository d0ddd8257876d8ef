package wsclient

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairboard/pairboard/internal/gateway"
	"github.com/pairboard/pairboard/internal/quiz"
)

func startGateway(t *testing.T) string {
	t.Helper()
	bank, err := quiz.LoadBank("")
	require.NoError(t, err)

	svc := gateway.NewService(gateway.DefaultConfig(), bank, nil, nil)
	mux := http.NewServeMux()
	svc.RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return "ws" + strings.TrimPrefix(server.URL, "http") + "/ws"
}

func awaitPayload(t *testing.T, ch <-chan json.RawMessage) json.RawMessage {
	t.Helper()
	select {
	case data := <-ch:
		return data
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func TestClientRoundTrip(t *testing.T) {
	url := startGateway(t)

	alice, err := Dial(url, "alice")
	require.NoError(t, err)
	defer alice.Close()

	// A fresh connection is greeted with the roster.
	aliceRoster := make(chan json.RawMessage, 4)
	alice.On(gateway.EventUserList, func(data json.RawMessage) { aliceRoster <- data })

	aliceQuestions := make(chan json.RawMessage, 4)
	alice.On(gateway.EventFirstLoadQuestions, func(data json.RawMessage) { aliceQuestions <- data })
	require.NoError(t, alice.Emit(gateway.EventJoin, gateway.RoomPayload{Room: "g1"}))

	var questions gateway.QuestionsPayload
	require.NoError(t, json.Unmarshal(awaitPayload(t, aliceQuestions), &questions))
	assert.Len(t, questions.Questions, 3)

	bob, err := Dial(url, "bob")
	require.NoError(t, err)
	defer bob.Close()

	bobDraw := make(chan json.RawMessage, 4)
	bob.On(gateway.EventOnDraw, func(data json.RawMessage) { bobDraw <- data })
	bobQuestions := make(chan json.RawMessage, 4)
	bob.On(gateway.EventFirstLoadQuestions, func(data json.RawMessage) { bobQuestions <- data })

	// Wait for bob's join to land before drawing so the stroke reaches him.
	require.NoError(t, bob.Emit(gateway.EventJoin, gateway.RoomPayload{Room: "g1"}))
	awaitPayload(t, bobQuestions)

	require.NoError(t, alice.Emit(gateway.EventDraw, map[string]any{
		"x": 10.0, "y": 20.0, "color": "#00f", "lineWidth": 2.0,
	}))

	var stroke gateway.DrawingEvent
	require.NoError(t, json.Unmarshal(awaitPayload(t, bobDraw), &stroke))
	assert.Equal(t, gateway.DrawingDraw, stroke.Type)
	assert.Equal(t, 10.0, stroke.X)
	assert.Equal(t, 20.0, stroke.Y)

	// Announcing bob's name reaches alice's roster.
	require.NoError(t, bob.Emit(gateway.EventUserJoined, gateway.UserJoinedPayload{Username: "bob"}))
	deadline := time.After(2 * time.Second)
	for {
		var roster []gateway.RosterEntry
		require.NoError(t, json.Unmarshal(awaitPayload(t, aliceRoster), &roster))
		if len(roster) == 2 && roster[1].Username == "bob" {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("roster never showed bob: %+v", roster)
		default:
		}
	}
}

func TestClientDoneOnServerClose(t *testing.T) {
	url := startGateway(t)

	client, err := Dial(url, "alice")
	require.NoError(t, err)

	require.NoError(t, client.Close())
	select {
	case <-client.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not exit after close")
	}
}

func TestDialRejectsBadURL(t *testing.T) {
	_, err := Dial("://nope", "alice")
	assert.Error(t, err)
}
