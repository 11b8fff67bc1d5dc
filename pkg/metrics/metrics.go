// Package metrics exposes the server's prometheus collectors. They are
// registered on the default registry and served by promhttp on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveConnections tracks live websocket connections across all users.
	ActiveConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "baatcheet_active_connections",
		Help: "Number of currently open live-channel connections.",
	})

	// OnlineUsers tracks users with at least one live connection.
	OnlineUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "baatcheet_online_users",
		Help: "Number of users with at least one live connection.",
	})

	// PresenceTransitions counts first-connect and last-disconnect edges.
	PresenceTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baatcheet_presence_transitions_total",
		Help: "Presence edge transitions, by resulting state.",
	}, []string{"state"})

	// EventsIn counts inbound live-channel events by type.
	EventsIn = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baatcheet_ws_events_in_total",
		Help: "Inbound live-channel events, by event name.",
	}, []string{"event"})

	// EventsOut counts outbound live-channel events by type.
	EventsOut = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baatcheet_ws_events_out_total",
		Help: "Outbound live-channel events, by event name.",
	}, []string{"event"})

	// MessagesDelivered counts messages accepted by the delivery pipeline.
	MessagesDelivered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "baatcheet_messages_delivered_total",
		Help: "Messages persisted and handed to fan-out.",
	})

	// StoreOps counts storage operations by op and result.
	StoreOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "baatcheet_store_ops_total",
		Help: "Storage operations, by operation and result.",
	}, []string{"op", "result"})
)
