package hero

import (
	"time"

	"github.com/google/uuid"

	"github.com/minorway/hero-go/command"
	"github.com/minorway/hero-go/internal/fragment"
	"github.com/minorway/hero-go/internal/metrics"
	"github.com/minorway/hero-go/internal/netio"
	"github.com/minorway/hero-go/wire"
)

// ClientState is the client-side connection lifecycle state.
type ClientState int

const (
	StateIdle ClientState = iota
	StateConnecting
	StateConnected
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client is the HERO client facade, wiring the datagram endpoint, packet
// codec, fragment engine, and the client-side connection state machine
// behind connect/send/receive.
//
// A Client is not safe for concurrent use by multiple goroutines: its
// sequence counter and reassembly table are owned by a single caller.
type Client struct {
	id uuid.UUID

	ep          *netio.Endpoint
	splitter    *fragment.Splitter
	reassembler *fragment.Reassembler

	cfg clientConfig
	met *metrics.ClientMetrics

	state ClientState
	seq   uint16

	host   string
	port   int
	pubKey []byte

	connected bool
	rtt       time.Duration
	lastPing  time.Time
	pingSent  time.Time
	awaiting  bool
}

// NewClient constructs an unconnected Client. Call Connect before Send or
// Receive.
func NewClient(opts ...ClientOption) *Client {
	cfg := defaultClientConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{
		id:          uuid.New(),
		ep:          netio.New(),
		splitter:    fragment.NewSplitter(),
		reassembler: fragment.NewReassembler(),
		cfg:         cfg,
		state:       StateIdle,
	}
	if cfg.metricsReg != nil {
		c.met = metrics.NewClientMetrics(cfg.metricsReg)
	}
	return c
}

func (c *Client) nextSeq() uint16 {
	s := c.seq
	c.seq++
	if c.met != nil {
		c.met.SeqNumber.Set(float64(c.seq))
	}
	return s
}

// Connect binds an ephemeral local port, sends CONN with pubKey as the
// opaque identity bytes, and waits up to the configured connect timeout for
// a SEEN reply. It returns false (leaving the client Closed) on timeout or
// send failure.
func (c *Client) Connect(host string, port int, pubKey []byte) bool {
	if c.state != StateIdle {
		return false
	}
	c.state = StateConnecting
	c.host, c.port, c.pubKey = host, port, pubKey
	c.cfg.logger.Debug().Str("conn_id", c.id.String()).Str("host", host).Int("port", port).Msg("client: connecting")

	if err := c.ep.Bind(0); err != nil {
		c.cfg.logger.Warn().Err(err).Msg("client: bind failed")
		c.state = StateClosed
		return false
	}

	pkt := wire.Packet{Flag: wire.FlagCONN, Version: wire.SupportedVersion, Seq: c.nextSeq(), Requirements: pubKey}
	if !c.ep.Send(wire.Encode(pkt), host, port) {
		c.cfg.logger.Warn().Msg("client: CONN send failed")
		c.state = StateClosed
		return false
	}

	deadline := time.Now().Add(c.cfg.connectTimeout)
	for time.Now().Before(deadline) {
		data, rhost, rport, ok := c.ep.Recv()
		if ok && rhost == host && rport == port {
			if p, err := wire.Decode(data); err == nil && p.Flag == wire.FlagSEEN {
				c.state = StateConnected
				c.connected = true
				if c.met != nil {
					c.met.Connected.Set(1)
				}
				c.lastPing = time.Now()
				return true
			}
		}
		time.Sleep(pollInterval)
	}

	c.state = StateClosed
	return false
}

// IsConnected reports whether the client completed its handshake and has
// not since disconnected.
func (c *Client) IsConnected() bool {
	return c.state == StateConnected
}

// SequenceNumber returns the client's current outgoing sequence counter.
func (c *Client) SequenceNumber() uint16 {
	return c.seq
}

// PingMS returns the round-trip time of the most recent successful Ping,
// in milliseconds.
func (c *Client) PingMS() int64 {
	return c.rtt.Milliseconds()
}

// Send transmits payload as a GIVE packet, or as a burst of FRAG packets
// if payload exceeds the chunk capacity. recipientKey, when non-nil, is
// carried in the GIVE packet's requirements as an optional routing hint;
// FRAG packets carry empty requirements, so a fragmented send does not
// transmit recipientKey.
func (c *Client) Send(payload []byte, recipientKey []byte) bool {
	if c.state != StateConnected {
		return false
	}
	if len(payload) <= fragment.ChunkCapacity {
		pkt := wire.Packet{Flag: wire.FlagGIVE, Version: wire.SupportedVersion, Seq: c.nextSeq(), Requirements: recipientKey, Payload: payload}
		return c.ep.Send(wire.Encode(pkt), c.host, c.port)
	}

	ok := true
	for _, frag := range c.splitter.Split(payload, wire.FlagGIVE) {
		if !c.ep.Send(wire.Encode(frag), c.host, c.port) {
			ok = false
		}
		time.Sleep(fragment.SendPacing)
	}
	return ok
}

// SendCommand encodes mnemonic and args via the command codec and sends
// the result as a GIVE (or FRAG burst, if large).
func (c *Client) SendCommand(mnemonic string, args []string, recipientKey []byte) bool {
	return c.Send(command.Encode(mnemonic, args), recipientKey)
}

// Receive polls the endpoint up to timeout for an inbound packet. CONN,
// STOP, and PING are not meaningful to a client and never occur
// server-side to a client, so this only classifies PONG (consumed for RTT
// bookkeeping) and SEEN (consumed, never acknowledged) versus everything
// else (acknowledged with SEEN and returned to the caller). FRAG packets
// are fed to the fragment engine and only surfaced once reassembled; each
// call first sweeps partial messages older than DefaultReassemblyTimeout.
func (c *Client) Receive(timeout time.Duration) (wire.Packet, bool) {
	if c.state != StateConnected {
		return wire.Packet{}, false
	}
	c.reassembler.Sweep(DefaultReassemblyTimeout)

	deadline := time.Now().Add(timeout)
	for {
		data, rhost, rport, ok := c.ep.Recv()
		if ok && rhost == c.host && rport == c.port {
			p, err := wire.Decode(data)
			if err != nil {
				c.cfg.logger.Debug().Err(err).Msg("client: dropping malformed packet")
			} else if pkt, done := c.classify(p); done {
				return pkt, true
			}
		}
		if !time.Now().Before(deadline) {
			return wire.Packet{}, false
		}
		time.Sleep(pollInterval)
	}
}

// classify applies the receive-path rule shared by client and server: a
// FRAG packet is handed to the fragment engine and only proceeds if it
// completes a message; PONG updates RTT and is consumed; SEEN is consumed
// without being acknowledged; everything else is acknowledged with SEEN
// and handed back to the caller.
func (c *Client) classify(p wire.Packet) (wire.Packet, bool) {
	if p.Flag == wire.FlagFRAG {
		reassembled, done := c.reassembler.IngestChunk(p)
		if !done {
			return wire.Packet{}, false
		}
		return c.classify(reassembled)
	}

	if p.Flag == wire.FlagPONG {
		if c.awaiting {
			c.rtt = time.Since(c.pingSent)
			c.awaiting = false
			if c.met != nil {
				c.met.RTTMillis.Set(float64(c.rtt.Milliseconds()))
			}
		}
		return wire.Packet{}, false
	}

	if p.Flag == wire.FlagSEEN {
		return wire.Packet{}, false
	}

	ack := wire.Packet{Flag: wire.FlagSEEN, Version: wire.SupportedVersion, Seq: p.Seq}
	c.ep.Send(wire.Encode(ack), c.host, c.port)
	return p, true
}

// Ping sends PING and waits up to the configured ping timeout for PONG,
// updating rtt on success.
func (c *Client) Ping() bool {
	if c.state != StateConnected {
		return false
	}
	c.pingSent = time.Now()
	c.awaiting = true
	c.lastPing = c.pingSent

	pkt := wire.Packet{Flag: wire.FlagPING, Version: wire.SupportedVersion, Seq: c.nextSeq()}
	if !c.ep.Send(wire.Encode(pkt), c.host, c.port) {
		c.awaiting = false
		return false
	}

	deadline := c.pingSent.Add(c.cfg.pingTimeout)
	for time.Now().Before(deadline) {
		data, rhost, rport, ok := c.ep.Recv()
		if ok && rhost == c.host && rport == c.port {
			if p, err := wire.Decode(data); err == nil {
				c.classify(p)
				if !c.awaiting {
					return true
				}
			}
		}
		time.Sleep(pollInterval)
	}
	c.awaiting = false
	return false
}

// KeepAlive invokes Ping if more than the configured keepalive interval
// has elapsed since the last ping.
func (c *Client) KeepAlive() bool {
	if time.Since(c.lastPing) < c.cfg.keepAliveInterval {
		return true
	}
	return c.Ping()
}

// Disconnect emits STOP and transitions to Closed without waiting for an
// acknowledgement.
func (c *Client) Disconnect() {
	if c.state == StateConnected {
		pkt := wire.Packet{Flag: wire.FlagSTOP, Version: wire.SupportedVersion, Seq: c.nextSeq()}
		c.ep.Send(wire.Encode(pkt), c.host, c.port)
	}
	c.state = StateClosed
	c.connected = false
	if c.met != nil {
		c.met.Connected.Set(0)
	}
	c.ep.Close()
}
