package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointchat_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreOpLatency records document store operation latency by operation and collection.
	StoreOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pointchat_store_op_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "collection"})

	// WebSocketRoomConnections is the gauge of connections per room.
	WebSocketRoomConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "pointchat_websocket_room_connections",
		Help: "Number of WebSocket connections per room",
	}, []string{"room"})

	// MessageThroughput counts events delivered per room and event name.
	MessageThroughput = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointchat_message_throughput_total",
		Help: "Total number of events delivered to rooms",
	}, []string{"room", "event"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pointchat_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts inbound WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointchat_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointchat_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// StoreMetrics records latency for document store operations.
type StoreMetrics struct{}

// NewStoreMetrics returns a new StoreMetrics instance.
func NewStoreMetrics() *StoreMetrics {
	return &StoreMetrics{}
}

// ObserveOp records the latency of a store operation.
func (*StoreMetrics) ObserveOp(operation, collection string, start time.Time) {
	StoreOpLatency.WithLabelValues(operation, collection).Observe(time.Since(start).Seconds())
}

// TrackOp returns a function that records operation latency when called (e.g. defer).
func (m *StoreMetrics) TrackOp(operation, collection string) func() {
	start := time.Now()
	return func() {
		m.ObserveOp(operation, collection, start)
	}
}

// RecordWebSocketEvent increments the WebSocket events counter for the event type.
func RecordWebSocketEvent(eventType string) {
	WebSocketEventsTotal.WithLabelValues(eventType).Inc()
}
