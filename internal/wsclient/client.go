// Package wsclient is a thin typed adapter over the gateway's WebSocket
// contract, used by tests and by headless tooling that needs to act as a
// room participant.
package wsclient

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/pairboard/pairboard/internal/gateway"
)

// Handler consumes the raw payload of one server event.
type Handler func(data json.RawMessage)

// Client is one live connection to the gateway.
type Client struct {
	ws *websocket.Conn

	writeMu sync.Mutex

	handlerMu sync.RWMutex
	handlers  map[gateway.EventType][]Handler

	done chan struct{}
}

// Dial connects to a gateway WebSocket URL (ws:// or wss://). username
// seeds the connection profile, may be empty.
func Dial(rawURL, username string) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid gateway url: %w", err)
	}
	if username != "" {
		q := u.Query()
		q.Set("username", username)
		u.RawQuery = q.Encode()
	}

	ws, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial gateway: %w", err)
	}

	c := &Client{
		ws:       ws,
		handlers: make(map[gateway.EventType][]Handler),
		done:     make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// On registers a handler for a server event. Handlers run on the read
// loop goroutine and must not block.
func (c *Client) On(event gateway.EventType, fn Handler) {
	c.handlerMu.Lock()
	c.handlers[event] = append(c.handlers[event], fn)
	c.handlerMu.Unlock()
}

// Emit sends an event with its payload.
func (c *Client) Emit(event gateway.EventType, payload any) error {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		data = b
	}
	frame, err := json.Marshal(gateway.Envelope{Event: event, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// Close tears the connection down.
func (c *Client) Close() error {
	return c.ws.Close()
}

// Done is closed when the read loop exits.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env gateway.Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			log.Warn().Err(err).Msg("wsclient: invalid frame")
			continue
		}

		c.handlerMu.RLock()
		handlers := c.handlers[env.Event]
		c.handlerMu.RUnlock()
		for _, fn := range handlers {
			fn(env.Data)
		}
	}
}
