package ws

import (
	"context"
	"log/slog"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"chat-relay/domain"
	"chat-relay/runtime"
)

// session is the per-connection state record. It is owned by the connection's
// read goroutine and never shared across connections.
type session struct {
	connectionID string
	boundUser    string // set once addUser succeeds
}

// client runs one WebSocket connection: a read loop turning frames into
// relay commands and a write loop draining the connection's sink. The two
// loops are separate goroutines so a slow reader never blocks deliveries.
type client struct {
	log        *slog.Logger
	conn       *websocket.Conn
	sink       *Sink
	session    session
	router     *runtime.Router
	dispatcher *runtime.Dispatcher
	registry   *runtime.Registry
	limiter    *rate.Limiter
	done       chan struct{}
}

// readLoop consumes frames until the peer goes away, then tears the
// connection down. Disconnected runs exactly once and must happen before
// done is closed so the write loop observes a settled registry.
func (c *client) readLoop(ctx context.Context) {
	defer func() {
		c.dispatcher.Disconnected(c.session.connectionID)
		close(c.done)
		_ = c.conn.Close()
	}()

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			return
		}
		if !c.limiter.Allow() {
			c.log.Warn("Inbound rate limit exceeded, dropping frame",
				"connection_id", c.session.connectionID)
			continue
		}
		c.handle(ctx, frame)
	}
}

// handle processes one inbound frame. Bad frames are dropped with a
// diagnostic; nothing a client sends may crash its connection.
func (c *client) handle(ctx context.Context, frame Frame) {
	if err := ValidateFrame(frame); err != nil {
		c.log.Warn("Dropping invalid frame",
			"connection_id", c.session.connectionID, "type", frame.Type, "error", err)
		return
	}

	switch frame.Type {
	case TypeAddUser:
		c.addUser(ctx, frame)
	case TypeSend:
		c.send(ctx, frame)
	}
}

func (c *client) addUser(ctx context.Context, frame Frame) {
	err := c.router.AddUser(ctx, domain.AddUserCommand{
		ConnectionID: c.session.connectionID,
		UserID:       frame.SenderID,
		Timestamp:    frameTimestamp(frame.Timestamp),
	})
	if err != nil {
		c.log.Error("addUser failed",
			"connection_id", c.session.connectionID, "error", err)
		return
	}

	// Re-identification is last-write-wins: drop the previous identity's
	// subscriptions before listening on the new one. The previous identity
	// stays in the online set until one of its connections disconnects;
	// presence tracks announcements, not subscriptions.
	if c.session.boundUser != "" && c.session.boundUser != frame.SenderID {
		c.registry.Unsubscribe(c.session.boundUser, c.session.connectionID)
	}
	c.session.boundUser = frame.SenderID

	c.registry.Subscribe(frame.SenderID, domain.QueueMessages, c.session.connectionID, c.sink)
	c.registry.Subscribe(frame.SenderID, domain.QueueNotifications, c.session.connectionID, c.sink)
}

func (c *client) send(ctx context.Context, frame Frame) {
	err := c.router.SendChat(ctx, domain.SendChatCommand{
		ConnectionID: c.session.connectionID,
		ReceiverID:   frame.ReceiverID,
		Content:      frame.Content,
		Timestamp:    frameTimestamp(frame.Timestamp),
	})
	if err != nil {
		// Connection-local failure: log and keep the connection alive.
		c.log.Error("Send failed",
			"connection_id", c.session.connectionID, "error", err)
	}
}

func (c *client) writeLoop() {
	defer func() {
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-c.done:
			_ = c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case m := <-c.sink.Messages:
			if err := c.conn.WriteJSON(toWireMessage(m)); err != nil {
				return
			}
		}
	}
}
