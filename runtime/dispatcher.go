package runtime

import (
	"fmt"
	"log/slog"
	"time"

	"chat-relay/domain"
	"chat-relay/observability"
)

// Dispatcher reacts to connection-lifecycle signals from the transport.
// Per connection the states are Unbound, Bound and Closed; a connection may
// close without ever binding.
type Dispatcher struct {
	log           *slog.Logger
	sessions      *Sessions
	presence      *Presence
	registry      *Registry
	notifications chan<- domain.Message
	collector     *observability.Collector
	identities    domain.Identities
	now           func() time.Time
}

func NewDispatcher(log *slog.Logger, sessions *Sessions, presence *Presence,
	registry *Registry, notifications chan<- domain.Message,
	collector *observability.Collector, identities domain.Identities) *Dispatcher {
	return &Dispatcher{
		log:           log,
		sessions:      sessions,
		presence:      presence,
		registry:      registry,
		notifications: notifications,
		collector:     collector,
		identities:    identities,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Connected is invoked when the transport accepts a connection.
// Identification is asynchronous relative to the connect: nothing is known
// about the user yet, so there are no presence or notification side effects.
func (d *Dispatcher) Connected(connectionID string) {
	d.collector.ConnectionOpened()
	d.log.Debug("Connection established, awaiting identification",
		"connection_id", connectionID)
}

// Disconnected resolves the connection's binding, reports the departure when
// the connection had identified itself, and always releases per-connection
// state. Anonymous disconnects are not reported to the admin.
func (d *Dispatcher) Disconnected(connectionID string) {
	defer d.collector.ConnectionClosed()

	userID, ok := d.sessions.Resolve(connectionID)
	d.sessions.Unbind(connectionID)
	if !ok {
		d.log.Debug("Anonymous connection closed", "connection_id", connectionID)
		return
	}

	d.registry.Unsubscribe(userID, connectionID)
	d.presence.MarkOffline(userID)
	d.collector.SetOnlineUsers(len(d.presence.Snapshot()))
	d.log.Info("User disconnected", "user_id", userID, "connection_id", connectionID)

	m := domain.Message{
		Content:    fmt.Sprintf("%s has left the chat.", userID),
		SenderID:   userID,
		ReceiverID: d.identities.Admin,
		Kind:       domain.KindLeave,
		Timestamp:  d.now(),
	}
	select {
	case d.notifications <- m:
	default:
		d.log.Warn("Notification channel full, dropping leave notification",
			"user_id", userID)
	}
}
