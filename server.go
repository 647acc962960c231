package hero

import (
	"sync/atomic"
	"time"

	"github.com/minorway/hero-go/command"
	"github.com/minorway/hero-go/internal/fragment"
	"github.com/minorway/hero-go/internal/metrics"
	"github.com/minorway/hero-go/internal/netio"
	"github.com/minorway/hero-go/internal/peerstore"
	"github.com/minorway/hero-go/wire"
)

// PacketHandler receives packets the server could not consume itself
// (anything other than CONN/STOP/PING/SEEN/PONG/FRAG-in-progress). reply borrows the
// server for the duration of the call only; see Reply.
type PacketHandler interface {
	Handle(p wire.Packet, host string, port int, reply Reply)
}

// PacketHandlerFunc adapts a function to PacketHandler.
type PacketHandlerFunc func(p wire.Packet, host string, port int, reply Reply)

func (f PacketHandlerFunc) Handle(p wire.Packet, host string, port int, reply Reply) {
	f(p, host, port, reply)
}

// Server is the HERO server facade: the server-side connection state
// machine over the peer registry (internal/peerstore), the fragment engine
// (internal/fragment, one Reassembler per peer), the packet codec (wire),
// and the datagram endpoint (internal/netio).
//
// Progress happens only inside Poll; Server spawns no goroutine of its own.
type Server struct {
	ep       *netio.Endpoint
	peers    *peerstore.Store
	splitter *fragment.Splitter

	cfg serverConfig
	met *metrics.ServerMetrics

	seq     uint32
	running bool
}

// NewServer constructs a Server that is not yet bound to a port.
func NewServer(opts ...ServerOption) *Server {
	cfg := defaultServerConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	s := &Server{
		ep:       netio.New(),
		peers:    peerstore.NewStore(cfg.peerStaleTimeout),
		splitter: fragment.NewSplitter(),
		cfg:      cfg,
	}
	if cfg.metricsReg != nil {
		s.met = metrics.NewServerMetrics(cfg.metricsReg)
	}
	return s
}

func (s *Server) nextSeq() uint16 {
	return uint16(atomic.AddUint32(&s.seq, 1) - 1)
}

// Start binds the server's UDP socket.
func (s *Server) Start(port int) error {
	if err := s.ep.Bind(port); err != nil {
		return err
	}
	s.running = true
	return nil
}

// Stop closes the server's socket. Connected peers are not notified.
func (s *Server) Stop() error {
	s.running = false
	return s.ep.Close()
}

// IsRunning reports whether Start has been called without a matching Stop.
func (s *Server) IsRunning() bool {
	return s.running
}

// ClientCount returns the number of peers currently tracked.
func (s *Server) ClientCount() int {
	return s.peers.Count()
}

// CleanupStaleClients evicts peers whose last activity exceeds timeout.
// Passing 0 uses the server's configured default instead.
func (s *Server) CleanupStaleClients(timeout time.Duration) {
	evicted := s.peers.Sweep(timeout)
	if s.met != nil {
		s.met.StaleEvictions.Add(float64(evicted))
		s.met.PeerCount.Set(float64(s.peers.Count()))
	}
}

// Poll drains every datagram currently available on the socket,
// classifies each one per the server-side state machine, and then runs
// the fragment and peer-stale housekeeping sweeps once. It never blocks.
func (s *Server) Poll(handler PacketHandler) {
	if !s.running {
		return
	}

	for {
		data, host, port, ok := s.ep.Recv()
		if !ok {
			break
		}
		p, err := wire.Decode(data)
		if err != nil {
			s.cfg.logger.Debug().Err(err).Str("host", host).Int("port", port).Msg("server: dropping malformed packet")
			continue
		}
		s.dispatch(p, host, port, handler)
	}

	s.peers.Range(func(peer *peerstore.Peer) {
		peer.Reassembler.Sweep(s.cfg.reassemblyTimeout)
	})
	evicted := s.peers.Sweep(s.cfg.peerStaleTimeout)
	if s.met != nil {
		s.met.StaleEvictions.Add(float64(evicted))
		s.met.PeerCount.Set(float64(s.peers.Count()))
	}
}

// dispatch implements the server's per-flag classification rule. FRAG is
// handed to the originating peer's own Reassembler and only recurses here
// if it completes a logical message, re-entering dispatch under the
// message's original flag.
func (s *Server) dispatch(p wire.Packet, host string, port int, handler PacketHandler) {
	switch p.Flag {
	case wire.FlagCONN:
		s.countRecv(wire.FlagCONN)
		peer, created := s.peers.GetOrCreate(host, port, p.Requirements)
		if created {
			s.cfg.logger.Info().Str("xid", peer.Xid.String()).Str("host", host).Int("port", port).Msg("server: peer connected")
		}
		s.ack(host, port, p.Seq)

	case wire.FlagSTOP:
		s.countRecv(wire.FlagSTOP)
		s.ack(host, port, p.Seq)
		s.peers.Delete(host, port)

	case wire.FlagPING:
		s.countRecv(wire.FlagPING)
		if peer, ok := s.peers.Get(host, port); ok {
			peer.LastPing = time.Now()
		}
		s.peers.Touch(host, port)
		pong := wire.Packet{Flag: wire.FlagPONG, Version: wire.SupportedVersion, Seq: p.Seq}
		s.ep.Send(wire.Encode(pong), host, port)

	case wire.FlagFRAG:
		peer, ok := s.peers.Get(host, port)
		if !ok {
			// A fragment arriving before CONN has no registry entry to
			// reassemble against; there is nothing valid to do with it.
			return
		}
		reassembled, done := peer.Reassembler.IngestChunk(p)
		if !done {
			return
		}
		if s.met != nil {
			s.met.FragmentsAssembled.Inc()
		}
		s.dispatch(reassembled, host, port, handler)

	case wire.FlagSEEN, wire.FlagPONG:
		// Acknowledgement frames are never themselves acknowledged.

	default:
		s.countRecv(p.Flag)
		s.peers.Touch(host, port)
		s.ack(host, port, p.Seq)
		handler.Handle(p, host, port, Reply{server: s, host: host, port: port})
	}
}

func (s *Server) countRecv(f wire.Flag) {
	if s.met != nil {
		s.met.PacketsReceived.WithLabelValues(f.String()).Inc()
	}
}

func (s *Server) ack(host string, port int, seq uint16) {
	pkt := wire.Packet{Flag: wire.FlagSEEN, Version: wire.SupportedVersion, Seq: seq}
	s.ep.Send(wire.Encode(pkt), host, port)
	if s.met != nil {
		s.met.AcksSent.Inc()
	}
}

// SendTo transmits payload to a specific peer address as GIVE, or as a
// FRAG burst when payload exceeds the chunk capacity. The destination
// need not be a registered peer.
func (s *Server) SendTo(host string, port int, payload []byte) bool {
	if len(payload) <= fragment.ChunkCapacity {
		pkt := wire.Packet{Flag: wire.FlagGIVE, Version: wire.SupportedVersion, Seq: s.nextSeq(), Payload: payload}
		return s.ep.Send(wire.Encode(pkt), host, port)
	}

	ok := true
	for _, frag := range s.splitter.Split(payload, wire.FlagGIVE) {
		if !s.ep.Send(wire.Encode(frag), host, port) {
			ok = false
		}
		time.Sleep(fragment.SendPacing)
	}
	return ok
}

// SendCommandTo encodes mnemonic and args and sends the result to a
// specific peer address.
func (s *Server) SendCommandTo(host string, port int, mnemonic string, args []string) bool {
	return s.SendTo(host, port, command.Encode(mnemonic, args))
}

// Broadcast sends payload to every peer currently tracked, honouring
// fragmentation per peer. It returns false if any individual send failed.
func (s *Server) Broadcast(payload []byte) bool {
	ok := true
	s.peers.Range(func(peer *peerstore.Peer) {
		if !s.SendTo(peer.Host, peer.Port, payload) {
			ok = false
		}
	})
	return ok
}

// BroadcastCommand encodes mnemonic and args and broadcasts the result to
// every tracked peer.
func (s *Server) BroadcastCommand(mnemonic string, args []string) bool {
	return s.Broadcast(command.Encode(mnemonic, args))
}
