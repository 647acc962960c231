// Package fragment splits oversize HERO payloads into FRAG packets at the
// sender and reassembles them at the receiver, preserving the original
// packet flag across the round trip.
//
// The sub-header and bookkeeping here are a direct generalization of the
// reference tunnel's own fragment engine: that implementation capped
// TotalChunks at a uint8 (255) because its DNS transport limited chunks to a
// little over a hundred bytes apiece. HERO's chunk capacity is large enough
// that total fragment counts need the full uint16 range instead.
package fragment

import (
	"encoding/binary"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/minorway/hero-go/wire"
)

// HeaderLen is the size of the fragment sub-header carried inside a FRAG
// packet's payload: [MsgID:2][Index:2][Total:2][OriginalFlag:1].
const HeaderLen = 7

// ChunkCapacity is the maximum payload bytes carried per fragment. It is
// chosen to stay comfortably under the ~65507 byte UDP payload ceiling once
// the fragment sub-header and the HERO packet header are both added on top.
const ChunkCapacity = 60000

// SendPacing is the recommended delay between emitting successive fragments
// of one message, to reduce receive-side drops on a modest receive buffer.
const SendPacing = 1 * time.Millisecond

// completedRetention is how long a finished message id is remembered so a
// late straggling fragment doesn't resurrect a new partial record for it.
const completedRetention = 30 * time.Second

// Splitter assigns message ids to outgoing oversize payloads. It holds no
// state but a monotonic counter, so wraparound is allowed and just means
// message ids eventually repeat.
type Splitter struct {
	mu     sync.Mutex
	nextID uint16
}

// NewSplitter returns a ready-to-use Splitter.
func NewSplitter() *Splitter {
	return &Splitter{}
}

// Split divides payload into FRAG packets carrying originalFlag, in order.
// It always produces at least one fragment reflecting the caller's decision
// to fragment; callers should only invoke Split when len(payload) exceeds
// ChunkCapacity.
func (s *Splitter) Split(payload []byte, originalFlag wire.Flag) []wire.Packet {
	s.mu.Lock()
	msgID := s.nextID
	s.nextID++
	s.mu.Unlock()

	total := (len(payload) + ChunkCapacity - 1) / ChunkCapacity
	if total == 0 {
		total = 1
	}

	packets := make([]wire.Packet, total)
	for i := 0; i < total; i++ {
		start := i * ChunkCapacity
		end := start + ChunkCapacity
		if end > len(payload) {
			end = len(payload)
		}

		sub := make([]byte, HeaderLen+(end-start))
		binary.LittleEndian.PutUint16(sub[0:2], msgID)
		binary.LittleEndian.PutUint16(sub[2:4], uint16(i))
		binary.LittleEndian.PutUint16(sub[4:6], uint16(total))
		sub[6] = byte(originalFlag)
		copy(sub[HeaderLen:], payload[start:end])

		packets[i] = wire.Packet{
			Flag:    wire.FlagFRAG,
			Version: wire.SupportedVersion,
			Seq:     uint16(i),
			Payload: sub,
		}
	}
	return packets
}

type pendingMessage struct {
	chunks       [][]byte
	total        int
	received     int
	originalFlag wire.Flag
	lastSeq      uint16
	lastUpdate   time.Time
}

// Reassembler buffers fragments per message id and reconstructs the
// original packet once every index has arrived. One Reassembler belongs to
// exactly one endpoint; nothing here is shared across endpoints.
type Reassembler struct {
	mu        sync.Mutex
	pending   map[uint16]*pendingMessage
	completed map[uint16]time.Time
}

// NewReassembler returns an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{
		pending:   make(map[uint16]*pendingMessage),
		completed: make(map[uint16]time.Time),
	}
}

// IngestChunk processes one FRAG packet. It returns the reassembled packet,
// with Flag restored to the original and Seq copied from the last-received
// fragment (treat it only as what an eventual SEEN will echo; it carries no
// other meaning), once every fragment index has been seen. Otherwise it
// returns false.
//
// A duplicate fragment index silently overwrites the previous bytes. A
// fragment whose declared total disagrees with an in-progress record for
// the same message id is rejected without effect.
func (r *Reassembler) IngestChunk(frag wire.Packet) (wire.Packet, bool) {
	data := frag.Payload
	if len(data) < HeaderLen {
		return wire.Packet{}, false
	}

	msgID := binary.LittleEndian.Uint16(data[0:2])
	index := binary.LittleEndian.Uint16(data[2:4])
	total := binary.LittleEndian.Uint16(data[4:6])
	originalFlag := wire.Flag(data[6])
	chunkData := data[HeaderLen:]

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, done := r.completed[msgID]; done {
		return wire.Packet{}, false
	}

	msg, ok := r.pending[msgID]
	if !ok {
		msg = &pendingMessage{
			chunks:       make([][]byte, total),
			total:        int(total),
			originalFlag: originalFlag,
			lastUpdate:   time.Now(),
		}
		r.pending[msgID] = msg
	}
	if int(total) != msg.total {
		log.Debug().Uint16("msg_id", msgID).Uint16("total", total).
			Msg("fragment: total mismatch with in-progress message, dropping")
		return wire.Packet{}, false
	}

	if int(index) < msg.total {
		if msg.chunks[index] == nil {
			msg.received++
		}
		msg.chunks[index] = append([]byte(nil), chunkData...)
		msg.lastUpdate = time.Now()
		msg.lastSeq = frag.Seq
	}

	if msg.received != msg.total {
		return wire.Packet{}, false
	}

	delete(r.pending, msgID)
	r.completed[msgID] = time.Now()

	full := []byte{}
	for _, c := range msg.chunks {
		full = append(full, c...)
	}

	return wire.Packet{
		Flag:    msg.originalFlag,
		Version: wire.SupportedVersion,
		Seq:     msg.lastSeq,
		Payload: full,
	}, true
}

// Sweep destroys pending messages whose last update is older than timeout,
// without surfacing them, and forgets completed-message ids older than the
// fixed duplicate-fragment retention window. It is never called on a timer
// internal to the Reassembler; the owning Connection Core calls it once per
// poll/receive iteration.
func (r *Reassembler) Sweep(timeout time.Duration) {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	for id, msg := range r.pending {
		if now.Sub(msg.lastUpdate) > timeout {
			delete(r.pending, id)
		}
	}
	for id, at := range r.completed {
		if now.Sub(at) > completedRetention {
			delete(r.completed, id)
		}
	}
}
