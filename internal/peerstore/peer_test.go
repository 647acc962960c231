package peerstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreate(t *testing.T) {
	s := NewStore(30 * time.Second)

	p1, created := s.GetOrCreate("10.0.0.1", 9999, []byte{1, 2, 3, 4})
	assert.True(t, created)
	assert.Equal(t, []byte{1, 2, 3, 4}, p1.PubKey)
	assert.NotZero(t, p1.Xid)
	assert.Equal(t, 1, s.Count())

	p2, created := s.GetOrCreate("10.0.0.1", 9999, []byte{9, 9, 9, 9})
	assert.False(t, created)
	assert.Same(t, p1, p2)
	assert.Equal(t, []byte{1, 2, 3, 4}, p2.PubKey, "identity bytes are fixed at first CONN")
}

func TestDeleteOnStop(t *testing.T) {
	s := NewStore(30 * time.Second)
	s.GetOrCreate("host", 1, nil)
	require.Equal(t, 1, s.Count())

	s.Delete("host", 1)
	_, found := s.Get("host", 1)
	assert.False(t, found)
	assert.Equal(t, 0, s.Count())
}

func TestSweepEvictsStalePeers(t *testing.T) {
	s := NewStore(20 * time.Millisecond)
	s.GetOrCreate("stale", 1, nil)

	time.Sleep(40 * time.Millisecond)
	evicted := s.Sweep(20 * time.Millisecond)

	assert.Equal(t, 1, evicted)
	_, found := s.Get("stale", 1)
	assert.False(t, found)
}

func TestTouchRefreshesTTL(t *testing.T) {
	s := NewStore(30 * time.Millisecond)
	s.GetOrCreate("host", 2, nil)

	time.Sleep(20 * time.Millisecond)
	s.Touch("host", 2)
	time.Sleep(20 * time.Millisecond)

	p, found := s.Get("host", 2)
	require.True(t, found, "touch should have refreshed the TTL")
	assert.Equal(t, "host", p.Host)
}

func TestRangeVisitsAllPeers(t *testing.T) {
	s := NewStore(30 * time.Second)
	s.GetOrCreate("a", 1, nil)
	s.GetOrCreate("b", 2, nil)

	seen := map[string]bool{}
	s.Range(func(p *Peer) { seen[p.Host] = true })
	assert.Equal(t, map[string]bool{"a": true, "b": true}, seen)
}
