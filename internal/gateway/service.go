package gateway

import (
	"net/http"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/pairboard/pairboard/internal/quiz"
)

// Config holds gateway tuning.
type Config struct {
	Connection      ConnectionConfig
	MinParticipants int
}

// DefaultConfig returns the default gateway configuration.
func DefaultConfig() Config {
	return Config{
		Connection:      DefaultConnectionConfig(),
		MinParticipants: 2,
	}
}

// Service composes the real-time layer: connection registry, whiteboard,
// quiz coordinator, relay and timers behind a single WebSocket endpoint.
type Service struct {
	cm        *ConnectionManager
	board     *Whiteboard
	quiz      *QuizCoordinator
	relay     *Relay
	timers    *TimerCoordinator
	router    *Router
	wsHandler *WebSocketHandler
}

// NewService wires the gateway together. clock may be nil for the real
// clock; recorder may be nil to discard activity events.
func NewService(cfg Config, bank *quiz.Bank, clock clockwork.Clock, recorder Recorder) *Service {
	cm := NewConnectionManager(cfg.Connection)
	board := NewWhiteboard()
	quizCoord := NewQuizCoordinator(cm, bank, cfg.MinParticipants, recorder)
	relay := NewRelay(cm)
	timers := NewTimerCoordinator(cm, clock)
	router := NewRouter(cm, board, quizCoord, relay, timers)

	cm.SetRoomEmptyHook(func(room string) {
		quizCoord.DropRoom(room)
		timers.Cancel(room)
	})

	return &Service{
		cm:        cm,
		board:     board,
		quiz:      quizCoord,
		relay:     relay,
		timers:    timers,
		router:    router,
		wsHandler: NewWebSocketHandler(cm, router),
	}
}

// RegisterRoutes mounts the gateway's HTTP surface.
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	s.wsHandler.RegisterRoutes(mux)
	log.Info().Msg("gateway routes registered")
}

// ConnectionManager exposes the registry to other layers.
func (s *Service) ConnectionManager() *ConnectionManager {
	return s.cm
}
