package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server's Prometheus collectors. A nil *Metrics is a
// valid no-op receiver so call sites never need nil checks.
type Metrics struct {
	connectionsActive prometheus.Gauge
	messagesRouted    prometheus.Counter
	broadcastsTotal   prometheus.Counter
	eventsDropped     prometheus.Counter
	historyFetches    prometheus.Counter
}

// New registers the collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		connectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "gridchat_connections_active",
			Help: "Number of live WebSocket connections.",
		}),
		messagesRouted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridchat_messages_routed_total",
			Help: "Chat messages persisted and broadcast.",
		}),
		broadcastsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridchat_broadcast_deliveries_total",
			Help: "Events queued to room members during fan-out.",
		}),
		eventsDropped: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridchat_events_dropped_total",
			Help: "Events dropped because a consumer was too slow.",
		}),
		historyFetches: factory.NewCounter(prometheus.CounterOpts{
			Name: "gridchat_history_fetches_total",
			Help: "History replays served on channel join.",
		}),
	}
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connectionsActive.Inc()
	}
}

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connectionsActive.Dec()
	}
}

// MessageRouted counts a persisted-and-broadcast chat message.
func (m *Metrics) MessageRouted() {
	if m != nil {
		m.messagesRouted.Inc()
	}
}

// BroadcastDelivered counts deliveries and drops from one fan-out.
func (m *Metrics) BroadcastDelivered(delivered, members int) {
	if m == nil {
		return
	}
	m.broadcastsTotal.Add(float64(delivered))
	if dropped := members - delivered; dropped > 0 {
		m.eventsDropped.Add(float64(dropped))
	}
}

// HistoryFetched counts a history replay.
func (m *Metrics) HistoryFetched() {
	if m != nil {
		m.historyFetches.Inc()
	}
}
