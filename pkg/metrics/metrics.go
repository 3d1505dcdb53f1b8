// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// ConnectionsActive tracks active WebSocket connections.
	ConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of active WebSocket connections",
		},
	)

	// OnlineUsers tracks users with at least one live connection.
	OnlineUsers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_online_users",
			Help: "Number of users currently online",
		},
	)

	// MessagesTotal tracks messages relayed through the hub.
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total chat messages relayed",
		},
		[]string{"type"},
	)

	// BroadcastFanout tracks how many connections each room broadcast reached.
	BroadcastFanout = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chat_broadcast_fanout",
			Help:    "Connections reached per room broadcast",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// NotificationsTotal tracks durable notifications created.
	NotificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_notifications_total",
			Help: "Total notifications created",
		},
		[]string{"kind"},
	)

	// PushDeliveriesTotal tracks external push attempts by outcome.
	PushDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_push_deliveries_total",
			Help: "Total external push delivery attempts",
		},
		[]string{"status"},
	)

	// SlowConsumersDropped tracks connections dropped for full send buffers.
	SlowConsumersDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ws_slow_consumers_dropped_total",
			Help: "Connections dropped because their send buffer was full",
		},
	)

	// SignalsRelayed tracks WebRTC signaling frames forwarded.
	SignalsRelayed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_signals_relayed_total",
			Help: "WebRTC signaling frames relayed",
		},
		[]string{"event"},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}
