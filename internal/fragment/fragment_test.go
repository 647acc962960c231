package fragment

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minorway/hero-go/wire"
)

func TestSplitReassembleRoundTrip(t *testing.T) {
	sizes := []int{0, 1, ChunkCapacity, ChunkCapacity + 1, 250000, 1 << 20}

	for _, size := range sizes {
		payload := make([]byte, size)
		for i := range payload {
			payload[i] = byte(i)
		}

		s := NewSplitter()
		frags := s.Split(payload, wire.FlagGIVE)

		r := NewReassembler()
		var result wire.Packet
		var ok bool
		for _, f := range frags {
			result, ok = r.IngestChunk(f)
			if ok {
				break
			}
		}
		if size == 0 {
			// A zero-length payload still produces exactly one fragment.
			require.Len(t, frags, 1)
		}
		require.True(t, ok, "reassembly did not complete for size %d", size)
		assert.Equal(t, wire.FlagGIVE, result.Flag)
		assert.Equal(t, payload, result.Payload)
	}
}

func TestReassembleOutOfOrder(t *testing.T) {
	payload := make([]byte, 300000)
	rand.New(rand.NewSource(1)).Read(payload)

	s := NewSplitter()
	frags := s.Split(payload, wire.FlagGIVE)
	require.Greater(t, len(frags), 1)

	shuffled := append([]wire.Packet(nil), frags...)
	rand.New(rand.NewSource(2)).Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	r := NewReassembler()
	var result wire.Packet
	var ok bool
	for _, f := range shuffled {
		result, ok = r.IngestChunk(f)
		if ok {
			break
		}
	}
	require.True(t, ok)
	assert.Equal(t, payload, result.Payload)
}

func TestDuplicateFragmentAfterCompletionIgnored(t *testing.T) {
	payload := []byte("hello world, this is a small message")
	s := NewSplitter()
	frags := s.Split(payload, wire.FlagGIVE)
	require.Len(t, frags, 1)

	r := NewReassembler()
	result, ok := r.IngestChunk(frags[0])
	require.True(t, ok)
	assert.Equal(t, payload, result.Payload)

	// Re-ingesting after completion must not resurrect the message.
	_, ok = r.IngestChunk(frags[0])
	assert.False(t, ok)
}

func TestMismatchedTotalRejectedSilently(t *testing.T) {
	payload := make([]byte, ChunkCapacity*3)
	s := NewSplitter()
	frags := s.Split(payload, wire.FlagGIVE)
	require.Len(t, frags, 3)

	r := NewReassembler()
	_, ok := r.IngestChunk(frags[0])
	require.False(t, ok)

	tampered := frags[1]
	tampered.Payload = append([]byte(nil), tampered.Payload...)
	// Corrupt the declared total field of this fragment.
	tampered.Payload[4] = 0xFF
	tampered.Payload[5] = 0xFF

	_, ok = r.IngestChunk(tampered)
	assert.False(t, ok)

	_, ok = r.IngestChunk(frags[2])
	assert.False(t, ok, "message should still be incomplete: fragment 1 was rejected")
}

func TestSweepDestroysStaleMessagesWithoutSurfacing(t *testing.T) {
	payload := make([]byte, ChunkCapacity*2)
	s := NewSplitter()
	frags := s.Split(payload, wire.FlagGIVE)
	require.Len(t, frags, 2)

	r := NewReassembler()
	_, ok := r.IngestChunk(frags[0])
	require.False(t, ok)

	r.pending[0].lastUpdate = time.Now().Add(-time.Hour)
	r.Sweep(30 * time.Second)

	_, ok = r.IngestChunk(frags[1])
	assert.False(t, ok, "stale partial message must have been destroyed, not completed")
}
