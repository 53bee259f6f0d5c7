package signaling

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the hub's Prometheus collectors. Tests pass a private
// registry; the server binary passes prometheus.DefaultRegisterer.
type Metrics struct {
	ConnectedClients prometheus.Gauge
	ActiveRooms      prometheus.Gauge
	RelayedMessages  prometheus.Counter
	DroppedMessages  prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ConnectedClients: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_connected_clients",
			Help: "Number of live websocket connections.",
		}),
		ActiveRooms: factory.NewGauge(prometheus.GaugeOpts{
			Name: "signaling_active_rooms",
			Help: "Number of rooms with at least one member.",
		}),
		RelayedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "signaling_relayed_messages_total",
			Help: "Messages queued for delivery to a connection.",
		}),
		DroppedMessages: factory.NewCounter(prometheus.CounterOpts{
			Name: "signaling_dropped_messages_total",
			Help: "Messages dropped for unknown targets or full queues.",
		}),
	}
}
