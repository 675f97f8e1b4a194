package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/observability"
	"chat-relay/repositories"
)

// Router persists inbound messages and routes them to private addresses.
// Every operation is connection-local: a failure aborts only the triggering
// command and never touches another connection's state.
type Router struct {
	log           *slog.Logger
	sessions      *Sessions
	presence      *Presence
	repository    repositories.IMessageRepository
	deliverer     contract.Deliverer
	notifications chan<- domain.Message
	collector     *observability.Collector
	identities    domain.Identities
	now           func() time.Time
}

func NewRouter(log *slog.Logger, sessions *Sessions, presence *Presence,
	repository repositories.IMessageRepository, deliverer contract.Deliverer,
	notifications chan<- domain.Message, collector *observability.Collector,
	identities domain.Identities) *Router {
	return &Router{
		log:           log,
		sessions:      sessions,
		presence:      presence,
		repository:    repository,
		deliverer:     deliverer,
		notifications: notifications,
		collector:     collector,
		identities:    identities,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// SendChat handles a chat-send intent: resolve the sender from the
// connection's binding, persist, then deliver to the receiver's address and
// to the sender's own address so their other connections observe the sent
// message.
//
// Store then forward, never the reverse. Both deliveries are independent
// best-effort attempts; an unreachable destination rolls nothing back.
func (r *Router) SendChat(ctx context.Context, cmd domain.SendChatCommand) error {
	senderID, ok := r.sessions.Resolve(cmd.ConnectionID)
	if !ok {
		// A send from a connection that never identified itself is dropped
		// silently; nothing is persisted and nothing surfaces to the
		// transport layer.
		r.collector.RecordUnboundDrop()
		r.log.Warn("Dropping send from unbound connection",
			"connection_id", cmd.ConnectionID)
		return nil
	}

	m := domain.Message{
		Content:    cmd.Content,
		SenderID:   senderID, // the payload-declared sender is never authoritative
		ReceiverID: cmd.ReceiverID,
		Kind:       domain.KindChat,
		Timestamp:  r.timestampOrNow(cmd.Timestamp),
	}

	id, err := r.repository.PersistMessage(m)
	if err != nil {
		return fmt.Errorf("persisting chat message: %w", err)
	}
	m.ID = id
	r.collector.RecordPersisted(string(domain.KindChat))

	r.deliverer.SendToUser(ctx, m.ReceiverID, domain.QueueMessages, m)
	r.deliverer.SendToUser(ctx, m.SenderID, domain.QueueMessages, m)
	return nil
}

// AddUser binds the connection to the payload-declared identity, records a
// JOIN audit entry against the system placeholder receiver, marks the
// identity online and notifies the admin.
//
// This is the one path where the payload-declared identity is trusted:
// addUser IS the declaration mechanism.
func (r *Router) AddUser(_ context.Context, cmd domain.AddUserCommand) error {
	if cmd.UserID == "" {
		return errors.ErrEmptyIdentity
	}
	at := r.timestampOrNow(cmd.Timestamp)

	r.sessions.Bind(cmd.ConnectionID, cmd.UserID)

	record := domain.Message{
		Content:    fmt.Sprintf("%s has joined the chat.", cmd.UserID),
		SenderID:   cmd.UserID,
		ReceiverID: r.identities.SystemReceiver,
		Kind:       domain.KindJoin,
		Timestamp:  at,
	}
	id, err := r.repository.PersistMessage(record)
	if err != nil {
		return fmt.Errorf("persisting join record: %w", err)
	}
	r.collector.RecordPersisted(string(domain.KindJoin))

	r.presence.MarkOnline(cmd.UserID)
	r.collector.SetOnlineUsers(len(r.presence.Snapshot()))
	r.log.Info("User joined", "user_id", cmd.UserID, "connection_id", cmd.ConnectionID)

	r.notify(domain.Message{
		ID:         id,
		Content:    fmt.Sprintf("%s has started a chat.", cmd.UserID),
		SenderID:   cmd.UserID,
		ReceiverID: r.identities.Admin,
		Kind:       domain.KindJoin,
		Timestamp:  at,
	})
	return nil
}

func (r *Router) notify(m domain.Message) {
	select {
	case r.notifications <- m:
	default:
		r.log.Warn("Notification channel full, dropping presence notification",
			"user_id", m.SenderID, "kind", m.Kind)
	}
}

func (r *Router) timestampOrNow(at time.Time) time.Time {
	if at.IsZero() {
		return r.now()
	}
	return at.UTC()
}
