package ws

import (
	"context"

	"chat-relay/domain"
	"chat-relay/errors"
)

// Sink buffers messages bound for one connection.
type Sink struct {
	Messages chan domain.Message
}

func NewSink(bufferSize int) *Sink {
	return &Sink{Messages: make(chan domain.Message, bufferSize)}
}

// Consume is called by the delivery side. It never blocks the router: when
// the buffer is full the message is dropped and the caller counts it.
func (s *Sink) Consume(ctx context.Context, m domain.Message) error {
	select {
	case s.Messages <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}
