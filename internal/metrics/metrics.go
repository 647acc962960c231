// Package metrics publishes the HERO observability surface (connected
// state, peer count, RTT, sequence number) plus fragment and
// acknowledgement counters, as Prometheus collectors.
//
// This mirrors how the retrieved corpus's TCP-introspection tooling
// (runZeroInc-conniver / runZeroInc-sockstats) exports per-connection
// kernel counters as prometheus.Gauge/Counter values rather than rolling
// its own stats struct; HERO has no kernel counters to read, so this
// package wraps the same observability values the Client/Server already
// track instead of a custom collector reading /proc.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// ServerMetrics are the counters and gauges a Server registers.
type ServerMetrics struct {
	PeerCount         prometheus.Gauge
	PacketsReceived   *prometheus.CounterVec
	AcksSent          prometheus.Counter
	FragmentsAssembled prometheus.Counter
	StaleEvictions    prometheus.Counter
}

// NewServerMetrics constructs and registers server-side metrics against reg.
// Pass prometheus.NewRegistry() for an isolated registry (recommended for
// tests and for embedding multiple Servers in one process), or
// prometheus.DefaultRegisterer to publish on the global /metrics handler.
func NewServerMetrics(reg prometheus.Registerer) *ServerMetrics {
	m := &ServerMetrics{
		PeerCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hero",
			Subsystem: "server",
			Name:      "peer_count",
			Help:      "Number of peers currently tracked by the server's peer registry.",
		}),
		PacketsReceived: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hero",
			Subsystem: "server",
			Name:      "packets_received_total",
			Help:      "Inbound packets received, labeled by flag. SEEN, PONG and individual FRAG fragments are not counted; a reassembled message counts under its original flag.",
		}, []string{"flag"}),
		AcksSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hero",
			Subsystem: "server",
			Name:      "acks_sent_total",
			Help:      "SEEN acknowledgements emitted.",
		}),
		FragmentsAssembled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hero",
			Subsystem: "server",
			Name:      "fragments_reassembled_total",
			Help:      "Logical messages successfully reassembled from FRAG packets.",
		}),
		StaleEvictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hero",
			Subsystem: "server",
			Name:      "stale_peer_evictions_total",
			Help:      "Peers removed by the stale-peer sweep.",
		}),
	}

	reg.MustRegister(m.PeerCount, m.PacketsReceived, m.AcksSent, m.FragmentsAssembled, m.StaleEvictions)
	return m
}

// ClientMetrics are the gauges a Client registers.
type ClientMetrics struct {
	Connected prometheus.Gauge
	RTTMillis prometheus.Gauge
	SeqNumber prometheus.Gauge
}

// NewClientMetrics constructs and registers client-side metrics against reg.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	m := &ClientMetrics{
		Connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hero",
			Subsystem: "client",
			Name:      "connected",
			Help:      "1 if the client is currently connected, 0 otherwise.",
		}),
		RTTMillis: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hero",
			Subsystem: "client",
			Name:      "rtt_milliseconds",
			Help:      "Round-trip time of the most recent successful ping.",
		}),
		SeqNumber: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "hero",
			Subsystem: "client",
			Name:      "sequence_number",
			Help:      "Current outgoing sequence counter.",
		}),
	}

	reg.MustRegister(m.Connected, m.RTTMillis, m.SeqNumber)
	return m
}
