// Package domain contains core concepts of the relay.
// Messages are immutable once persisted; the transport boundary validates
// inbound payloads before anything here is constructed.
package domain

import "time"

type Kind string

const (
	KindChat  Kind = "CHAT"
	KindJoin  Kind = "JOIN"
	KindLeave Kind = "LEAVE"
)

// Queue names for per-identity delivery destinations. Every identity owns one
// queue per name; any number of live connections may listen on it.
const (
	QueueMessages      = "messages"
	QueueNotifications = "notifications"
)

// Message is the unit of communication.
// ID is assigned by the store on persist and immutable afterwards; zero means
// the message has not been persisted yet.
type Message struct {
	ID         uint64
	Content    string
	SenderID   string
	ReceiverID string
	Kind       Kind
	Timestamp  time.Time
}

// Identities are the fixed well-known identities of the relay, set once from
// configuration. SystemReceiver only ever appears as the receiver of JOIN
// audit records and is never a delivery target; Admin receives every presence
// notification.
type Identities struct {
	SystemReceiver string
	Admin          string
}
