// Package ws is the relay's transport layer: persistent bidirectional
// WebSocket connections carrying JSON frames. One read and one write
// goroutine per connection; all cross-connection state lives in runtime.
package ws

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"chat-relay/runtime"
)

type Server struct {
	log          *slog.Logger
	router       *runtime.Router
	dispatcher   *runtime.Dispatcher
	registry     *runtime.Registry
	bufferSize   int
	messageRate  rate.Limit
	messageBurst int
	upgrader     websocket.Upgrader
}

func NewServer(log *slog.Logger, router *runtime.Router, dispatcher *runtime.Dispatcher,
	registry *runtime.Registry, bufferSize int, messageRate rate.Limit, messageBurst int) *Server {
	return &Server{
		log:          log,
		router:       router,
		dispatcher:   dispatcher,
		registry:     registry,
		bufferSize:   bufferSize,
		messageRate:  messageRate,
		messageBurst: messageBurst,
		upgrader: websocket.Upgrader{
			// The relay does not authenticate identities; origin checking is
			// left to whatever fronts it.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Handler upgrades the request and runs the connection until teardown.
func (s *Server) Handler(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("WebSocket upgrade failed", "error", err)
		return
	}

	c := &client{
		log:        s.log,
		conn:       conn,
		sink:       NewSink(s.bufferSize),
		session:    session{connectionID: uuid.NewString()},
		router:     s.router,
		dispatcher: s.dispatcher,
		registry:   s.registry,
		limiter:    rate.NewLimiter(s.messageRate, s.messageBurst),
		done:       make(chan struct{}),
	}

	s.dispatcher.Connected(c.session.connectionID)

	go c.writeLoop()
	c.readLoop(r.Context())
}
