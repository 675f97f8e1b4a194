package runtime

import (
	"context"
	"log/slog"
	"sync"

	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/observability"
)

// address is the delivery endpoint of one user identity: for each queue, the
// sinks of every live connection listening on it.
type address struct {
	mu     sync.RWMutex
	queues map[string]map[string]contract.EventSink // queue -> connectionID -> sink
}

// Registry maps user identities to their private delivery addresses.
// Entries live in a sync.Map so unrelated identities never contend on a
// shared lock; each address carries its own small mutex.
//
// Registry implements contract.Deliverer.
type Registry struct {
	log       *slog.Logger
	collector *observability.Collector
	addresses sync.Map // userID -> *address
}

func NewRegistry(log *slog.Logger, collector *observability.Collector) *Registry {
	return &Registry{log: log, collector: collector}
}

// Subscribe registers a connection's sink on one of the user's queues.
func (r *Registry) Subscribe(userID, queue, connectionID string, sink contract.EventSink) {
	v, _ := r.addresses.LoadOrStore(userID, &address{
		queues: make(map[string]map[string]contract.EventSink),
	})
	addr := v.(*address)

	addr.mu.Lock()
	defer addr.mu.Unlock()
	if _, ok := addr.queues[queue]; !ok {
		addr.queues[queue] = make(map[string]contract.EventSink)
	}
	addr.queues[queue][connectionID] = sink
}

// Unsubscribe removes the connection from every queue of the user's address.
// The address entry itself is kept even when emptied: deleting it here would
// race with a concurrent LoadOrStore in Subscribe, and the entry count is
// bounded by the identity population.
func (r *Registry) Unsubscribe(userID, connectionID string) {
	v, ok := r.addresses.Load(userID)
	if !ok {
		return
	}
	addr := v.(*address)

	addr.mu.Lock()
	defer addr.mu.Unlock()
	for queue, conns := range addr.queues {
		delete(conns, connectionID)
		if len(conns) == 0 {
			delete(addr.queues, queue)
		}
	}
}

// SendToUser pushes a message to every live connection listening on the
// user's queue. Fire and forget: an identity with no live subscription is
// simply not delivered to, and a full sink drops rather than blocks.
//
// Sinks are snapshotted under the read lock and consumed outside of it, so no
// shared lock is ever held across a delivery.
func (r *Registry) SendToUser(ctx context.Context, userID, queue string, m domain.Message) {
	v, ok := r.addresses.Load(userID)
	if !ok {
		r.log.Debug("No live address for delivery", "user_id", userID, "queue", queue)
		return
	}
	addr := v.(*address)

	addr.mu.RLock()
	sinks := make([]contract.EventSink, 0, len(addr.queues[queue]))
	for _, sink := range addr.queues[queue] {
		sinks = append(sinks, sink)
	}
	addr.mu.RUnlock()

	for _, sink := range sinks {
		r.collector.RecordDeliveryAttempt()
		if err := sink.Consume(ctx, m); err != nil {
			r.collector.RecordDeliveryDrop()
			r.log.Debug("Delivery dropped",
				"user_id", userID, "queue", queue, "error", err)
		}
	}
}
