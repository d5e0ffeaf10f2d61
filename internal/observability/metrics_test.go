package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStoreMetricsObserveOp(t *testing.T) {
	m := NewStoreMetrics()

	m.ObserveOp("get", "chats", time.Now())
	done := m.TrackOp("query", "users")
	done()

	// One series per (operation, collection) pair.
	assert.GreaterOrEqual(t, testutil.CollectAndCount(StoreOpLatency), 2)
}

func TestRecordWebSocketEvent(t *testing.T) {
	RecordWebSocketEvent("send_message")
	RecordWebSocketEvent("send_message")

	count := testutil.ToFloat64(WebSocketEventsTotal.WithLabelValues("send_message"))
	assert.GreaterOrEqual(t, count, 2.0)
}
