// Package observability collects and exposes Prometheus metrics.
package observability

import "github.com/prometheus/client_golang/prometheus"

// Collector records relay activity. One instance is registered against the
// process registry in main and injected everywhere metrics are produced.
type Collector struct {
	persisted        *prometheus.CounterVec
	unboundDropped   prometheus.Counter
	deliveryAttempts prometheus.Counter
	deliveryDropped  prometheus.Counter
	connections      prometheus.Gauge
	onlineUsers      prometheus.Gauge
}

func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		persisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_messages_persisted_total",
			Help: "Messages durably recorded, by kind.",
		}, []string{"kind"}),
		unboundDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_unbound_sends_dropped_total",
			Help: "Sends dropped because the connection never identified itself.",
		}),
		deliveryAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_delivery_attempts_total",
			Help: "Best-effort delivery attempts to live connection sinks.",
		}),
		deliveryDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "relay_deliveries_dropped_total",
			Help: "Deliveries dropped because a connection sink was full.",
		}),
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_connections_active",
			Help: "Currently open transport connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "relay_users_online",
			Help: "Identities currently present in the online set.",
		}),
	}
	reg.MustRegister(
		c.persisted,
		c.unboundDropped,
		c.deliveryAttempts,
		c.deliveryDropped,
		c.connections,
		c.onlineUsers,
	)
	return c
}

func (c *Collector) RecordPersisted(kind string) { c.persisted.WithLabelValues(kind).Inc() }

func (c *Collector) RecordUnboundDrop() { c.unboundDropped.Inc() }

func (c *Collector) RecordDeliveryAttempt() { c.deliveryAttempts.Inc() }

func (c *Collector) RecordDeliveryDrop() { c.deliveryDropped.Inc() }

func (c *Collector) ConnectionOpened() { c.connections.Inc() }

func (c *Collector) ConnectionClosed() { c.connections.Dec() }

func (c *Collector) SetOnlineUsers(n int) { c.onlineUsers.Set(float64(n)) }
