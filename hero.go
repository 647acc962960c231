// Package hero implements the HERO datagram transport: a minimal
// connection lifecycle, per-packet acknowledgement, and large-message
// fragmentation layered on top of unreliable unicast UDP datagrams.
//
// Client and Server are the public facade; they wire together the packet
// codec (wire), the fragment engine (internal/fragment), the datagram
// endpoint (internal/netio), and the peer registry (internal/peerstore).
// Both are single-threaded and cooperative: neither spawns a background
// goroutine of its own. Callers make progress by invoking Poll (server) or
// Receive/KeepAlive (client) from their own loop.
package hero

import "time"

// DefaultPubKey is the opaque identity placeholder CONN uses when an
// embedding application has no real key material. It exists purely so CONN
// is distinguishable from a malformed frame at a glance during a packet
// capture; HERO performs no cipher, KDF, or authentication over it.
var DefaultPubKey = []byte{0x01, 0x02, 0x03, 0x04}

// Defaults for every deadline the transport defines.
const (
	DefaultConnectTimeout    = 5 * time.Second
	DefaultPingTimeout       = 1 * time.Second
	DefaultReassemblyTimeout = 30 * time.Second
	DefaultPeerStaleTimeout  = 30 * time.Second
	DefaultKeepAliveInterval = 5 * time.Second
)

// pollInterval bounds how long any bounded wait loop sleeps between
// non-blocking recv attempts, so a caller blocked in Connect/Receive/Ping
// still returns close to its deadline instead of oversleeping it.
const pollInterval = 10 * time.Millisecond
