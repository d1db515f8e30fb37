package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ServiceState holds an Up/Down state per supervised service name,
	// as set through SetServiceUp/SetServiceDown: 0 for Down, 1 for Up
	// (spec.md §6 ServiceState, §8 property 8/scenario S3/S4).
	// robustservice does not update it itself.
	ServiceState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "svcgraph_service_state",
			Help: "Current state of a supervised service: 0=down, 1=up",
		},
		[]string{"service"},
	)

	// RestartsTotal counts reconstructions of a given service reported
	// through RecordRestart, reactive and preemptive alike;
	// robustservice.Run does not call RecordRestart itself.
	RestartsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcgraph_restarts_total",
			Help: "Total number of inner-service reconstructions performed by the robust service supervisor",
		},
		[]string{"service", "reason"}, // reason: "reactive", "preemptive"
	)

	// WSConnections tracks live wsconn connections per mode (sink,
	// source, node, and their *_with_pings variants).
	WSConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "svcgraph_websocket_connections",
			Help: "Current number of active WebSocket connections by pipeline mode",
		},
		[]string{"mode"},
	)

	// WSMessagesSent / WSMessagesReceived count application frames
	// moved through a shuttle, mirroring the teacher's
	// websocket_messages_{sent,received}_total but scoped per pipeline.
	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcgraph_websocket_messages_sent_total",
			Help: "Total number of application messages sent through shuttle_input",
		},
		[]string{"mode"},
	)

	WSMessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcgraph_websocket_messages_received_total",
			Help: "Total number of application messages delivered by shuttle_output",
		},
		[]string{"mode"},
	)

	// WSErrors counts terminal Spurious exits by cause, generalizing the
	// teacher's websocket_errors_total{error_type}.
	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "svcgraph_websocket_errors_total",
			Help: "Total number of Spurious terminations in the WebSocket pipeline",
		},
		[]string{"mode", "reason"}, // reason: "close", "transport", "ping_timeout", "pong_mismatch"
	)

	// KeepalivePingRoundtrip observes the time between emitting a ping
	// and receiving its matching pong, bucketed so ping_timeout
	// headroom is visible in operation.
	KeepalivePingRoundtrip = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "svcgraph_keepalive_ping_roundtrip_seconds",
			Help:    "Round-trip time between a keepalive ping and its matching pong",
			Buckets: prometheus.DefBuckets,
		},
	)
)

// RecordRestart increments RestartsTotal for service with the given
// reason ("reactive" or "preemptive").
func RecordRestart(service, reason string) {
	RestartsTotal.WithLabelValues(service, reason).Inc()
}

// SetServiceUp/SetServiceDown publish a robustservice.State transition.
func SetServiceUp(service string)   { ServiceState.WithLabelValues(service).Set(1) }
func SetServiceDown(service string) { ServiceState.WithLabelValues(service).Set(0) }

// RecordPingRoundtrip observes a keepalive ping's round-trip latency.
func RecordPingRoundtrip(d time.Duration) {
	KeepalivePingRoundtrip.Observe(d.Seconds())
}

// RecordWSError increments WSErrors for the given pipeline mode and
// termination reason.
func RecordWSError(mode, reason string) {
	WSErrors.WithLabelValues(mode, reason).Inc()
}
