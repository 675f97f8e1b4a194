package domain

import "time"

// SendChatCommand is a chat-send intent from one connection. The sender is
// deliberately absent: it is resolved from the connection's binding, never
// taken from the payload.
type SendChatCommand struct {
	ConnectionID string
	ReceiverID   string
	Content      string
	Timestamp    time.Time // zero means "use relay time"
}

// AddUserCommand declares the identity of a connection. This is the one
// place where a payload-declared identity is trusted.
type AddUserCommand struct {
	ConnectionID string
	UserID       string
	Timestamp    time.Time
}
