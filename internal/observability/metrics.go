package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreOpLatency records document store latency by backend, collection and operation.
	StoreOpLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialgraph_store_op_latency_seconds",
		Help:    "Document store operation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend", "collection", "operation"})

	// MutationsTotal counts graph mutations by operation and outcome.
	MutationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_mutations_total",
		Help: "Total graph mutations by operation and outcome",
	}, []string{"operation", "outcome"})

	// CompensationStepsTotal counts executed cascade steps.
	CompensationStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_compensation_steps_total",
		Help: "Total cascade compensation steps by collection, op and outcome",
	}, []string{"collection", "op", "outcome"})

	// CascadePlanSize observes how many steps each planned cascade holds.
	CascadePlanSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialgraph_cascade_plan_steps",
		Help:    "Number of steps in a planned cascade",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 1000},
	}, []string{"operation"})

	// EventsPublished counts mutation events sent to the event feed.
	EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialgraph_events_published_total",
		Help: "Total mutation events published by outcome",
	}, []string{"outcome"})

	// WebSocketConnectionsTotal is the gauge of open event-feed sockets.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialgraph_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})
)

// TrackStoreOp returns a function that records the latency of a store
// operation when called (e.g. defer).
func TrackStoreOp(backend, collection, op string) func() {
	start := time.Now()
	return func() {
		StoreOpLatency.WithLabelValues(backend, collection, op).Observe(time.Since(start).Seconds())
	}
}
