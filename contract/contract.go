package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// initialization or lifecycle events, avoiding the need for manual naming in
// the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives messages pushed to a private address.
// Consume must never block the caller indefinitely.
type EventSink interface {
	Consume(ctx context.Context, m domain.Message) error
}

// Deliverer pushes a message to every live connection subscribed to one
// user's queue. Fire and forget: an absent destination is not an error and no
// delivery confirmation exists.
type Deliverer interface {
	SendToUser(ctx context.Context, userID, queue string, m domain.Message)
}
