package ws

import (
	"time"

	"github.com/go-playground/validator/v10"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Frame types. The type field plays the role of a destination header: it
// selects which relay operation the frame triggers.
const (
	TypeSend    = "chat.send"
	TypeAddUser = "chat.addUser"
)

var validate = validator.New()

// Frame is an inbound client intent.
type Frame struct {
	Type       string     `json:"type"`
	Content    string     `json:"content,omitempty"`
	SenderID   string     `json:"sender_id,omitempty"`
	ReceiverID string     `json:"receiver_id,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type sendFrame struct {
	Content    string `validate:"required"`
	ReceiverID string `validate:"required"`
}

type addUserFrame struct {
	SenderID string `validate:"required"`
}

// ValidateFrame checks the frame for the fields its type requires. The
// sender_id of a chat.send frame is deliberately not required: it is ignored
// in favor of the connection's binding.
func ValidateFrame(f Frame) error {
	switch f.Type {
	case TypeSend:
		return validate.Struct(sendFrame{Content: f.Content, ReceiverID: f.ReceiverID})
	case TypeAddUser:
		return validate.Struct(addUserFrame{SenderID: f.SenderID})
	default:
		return errors.ErrUnknownPayloadType
	}
}

// WireMessage is an outbound persisted message or presence notification.
type WireMessage struct {
	ID         uint64    `json:"id,omitempty"`
	Content    string    `json:"content"`
	SenderID   string    `json:"sender_id"`
	ReceiverID string    `json:"receiver_id"`
	Kind       string    `json:"kind"`
	Timestamp  time.Time `json:"timestamp"`
}

func toWireMessage(m domain.Message) WireMessage {
	return WireMessage{
		ID:         m.ID,
		Content:    m.Content,
		SenderID:   m.SenderID,
		ReceiverID: m.ReceiverID,
		Kind:       string(m.Kind),
		Timestamp:  m.Timestamp,
	}
}

func frameTimestamp(at *time.Time) time.Time {
	if at == nil {
		return time.Time{}
	}
	return at.UTC()
}
