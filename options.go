package hero

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// clientConfig holds the resolved settings a Client is built from.
type clientConfig struct {
	logger            zerolog.Logger
	connectTimeout    time.Duration
	pingTimeout       time.Duration
	keepAliveInterval time.Duration
	metricsReg        prometheus.Registerer
}

func defaultClientConfig() clientConfig {
	return clientConfig{
		logger:            defaultLogger,
		connectTimeout:    DefaultConnectTimeout,
		pingTimeout:       DefaultPingTimeout,
		keepAliveInterval: DefaultKeepAliveInterval,
	}
}

// ClientOption configures a Client at construction time.
type ClientOption func(*clientConfig)

// WithClientLogger overrides the zerolog.Logger a Client writes to. The
// default discards everything below warn level.
func WithClientLogger(l zerolog.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = l }
}

// WithConnectTimeout bounds how long Connect waits for a CONN handshake to
// be acknowledged.
func WithConnectTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.connectTimeout = d }
}

// WithPingTimeout bounds how long Ping waits for a PONG before reporting
// failure.
func WithPingTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.pingTimeout = d }
}

// WithKeepAliveInterval sets the minimum spacing KeepAlive enforces between
// consecutive PINGs.
func WithKeepAliveInterval(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.keepAliveInterval = d }
}

// WithClientMetrics registers client gauges against reg. Without this
// option a Client tracks no metrics.
func WithClientMetrics(reg prometheus.Registerer) ClientOption {
	return func(c *clientConfig) { c.metricsReg = reg }
}

// serverConfig holds the resolved settings a Server is built from.
type serverConfig struct {
	logger            zerolog.Logger
	reassemblyTimeout time.Duration
	peerStaleTimeout  time.Duration
	metricsReg        prometheus.Registerer
}

func defaultServerConfig() serverConfig {
	return serverConfig{
		logger:            defaultLogger,
		reassemblyTimeout: DefaultReassemblyTimeout,
		peerStaleTimeout:  DefaultPeerStaleTimeout,
	}
}

// ServerOption configures a Server at construction time.
type ServerOption func(*serverConfig)

// WithServerLogger overrides the zerolog.Logger a Server writes to.
func WithServerLogger(l zerolog.Logger) ServerOption {
	return func(c *serverConfig) { c.logger = l }
}

// WithReassemblyTimeout bounds how long an incomplete fragmented message is
// kept waiting for its remaining chunks before it is silently discarded.
func WithReassemblyTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.reassemblyTimeout = d }
}

// WithPeerStaleTimeout sets the default staleness threshold the server's
// own housekeeping applies; CleanupStaleClients can still override it
// per call.
func WithPeerStaleTimeout(d time.Duration) ServerOption {
	return func(c *serverConfig) { c.peerStaleTimeout = d }
}

// WithServerMetrics registers server counters/gauges against reg. Without
// this option a Server tracks no metrics.
func WithServerMetrics(reg prometheus.Registerer) ServerOption {
	return func(c *serverConfig) { c.metricsReg = reg }
}
