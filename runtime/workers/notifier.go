package workers

import (
	"context"
	"log/slog"

	"chat-relay/contract"
	"chat-relay/domain"
)

// NotifierWorker drains presence notifications to the admin address.
// Connection handlers only enqueue; the worker performs the delivery, so no
// handler ever blocks on the admin's sinks.
type NotifierWorker struct {
	log           *slog.Logger
	deliverer     contract.Deliverer
	notifications <-chan domain.Message
}

func NewNotifierWorker(log *slog.Logger, deliverer contract.Deliverer,
	notifications <-chan domain.Message) *NotifierWorker {
	return &NotifierWorker{log: log, deliverer: deliverer, notifications: notifications}
}

func (w *NotifierWorker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping notification delivery")
			return nil
		case m := <-w.notifications:
			w.deliverer.SendToUser(ctx, m.ReceiverID, domain.QueueNotifications, m)
		}
	}
}
