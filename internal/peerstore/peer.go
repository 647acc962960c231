// Package peerstore holds the server-side peer registry: one record per
// remote (host, port) pair, created on CONN and destroyed on STOP or
// stale-peer eviction.
//
// It adapts the reference tunnel's SessionManager, which backs its
// per-tunnel sessions with github.com/patrickmn/go-cache and refreshes each
// entry's TTL on every access. HERO reuses exactly that TTL-refresh shape
// for peer-stale eviction, but disables go-cache's own background janitor
// goroutine (cleanupInterval 0) and instead sweeps expired entries
// synchronously from the Server's Poll loop, since no HERO component may
// spawn background threads of its own.
package peerstore

import (
	"strconv"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/rs/xid"

	"github.com/minorway/hero-go/internal/fragment"
)

// Peer is a remote endpoint the server has handshaken with: its address,
// the opaque identity bytes it supplied at CONN, and activity timestamps.
//
// Reassembler is scoped per peer rather than shared process-wide across
// every connected peer. A fragment's msg_id is only unique within one
// sender's connection, so a single server-wide reassembly table would let
// two different peers' concurrent msg_id 0 collide; keeping one Reassembler
// per Peer (the same granularity the reference tunnel's per-session
// Reassembler uses) avoids that without changing any wire-visible
// behavior.
type Peer struct {
	Host        string
	Port        int
	PubKey      []byte
	LastSeen    time.Time
	LastPing    time.Time
	Reassembler *fragment.Reassembler

	// Xid is a server-local trace id assigned at CONN, for correlating log
	// lines across one peer's lifetime. It never touches the wire; it has
	// nothing to do with the 16-bit seq the wire header carries.
	Xid xid.ID
}

// Key returns the "<host>:<port>" string peers are indexed by.
func Key(host string, port int) string {
	return host + ":" + strconv.Itoa(port)
}

// Store is the peer registry, keyed by Key(host, port).
type Store struct {
	cache *cache.Cache
	ttl   time.Duration
}

// NewStore returns a Store that considers a peer stale after ttl has
// elapsed since its last touch.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		// cleanupInterval 0: no background janitor. Expired entries are
		// only reclaimed when Sweep is called.
		cache: cache.New(ttl, 0),
		ttl:   ttl,
	}
}

// GetOrCreate returns the existing peer for (host, port), refreshing its
// TTL, or creates a new record with pubKey as its identity bytes.
func (s *Store) GetOrCreate(host string, port int, pubKey []byte) (p *Peer, created bool) {
	key := Key(host, port)

	if v, found := s.cache.Get(key); found {
		peer := v.(*Peer)
		peer.LastSeen = time.Now()
		s.cache.Set(key, peer, s.ttl)
		return peer, false
	}

	peer := &Peer{
		Host:        host,
		Port:        port,
		PubKey:      pubKey,
		LastSeen:    time.Now(),
		LastPing:    time.Now(),
		Reassembler: fragment.NewReassembler(),
		Xid:         xid.New(),
	}
	s.cache.Set(key, peer, s.ttl)
	return peer, true
}

// Touch refreshes the TTL and LastSeen of an existing peer, if present.
func (s *Store) Touch(host string, port int) {
	key := Key(host, port)
	if v, found := s.cache.Get(key); found {
		peer := v.(*Peer)
		peer.LastSeen = time.Now()
		s.cache.Set(key, peer, s.ttl)
	}
}

// Get returns the peer for (host, port), if any.
func (s *Store) Get(host string, port int) (*Peer, bool) {
	v, found := s.cache.Get(Key(host, port))
	if !found {
		return nil, false
	}
	return v.(*Peer), true
}

// Delete removes the peer for (host, port), used on STOP.
func (s *Store) Delete(host string, port int) {
	s.cache.Delete(Key(host, port))
}

// Count returns the number of peers currently tracked, including any not
// yet reclaimed by Sweep.
func (s *Store) Count() int {
	return s.cache.ItemCount()
}

// Sweep evicts peers untouched for longer than the store's configured TTL,
// or longer than timeout when a caller supplies an explicit override (used
// by the public CleanupStaleClients API). It must be called by the owning
// Server on every poll iteration; Store never schedules this itself. It
// returns the number of peers evicted, for callers that report it as a
// metric.
func (s *Store) Sweep(timeout time.Duration) int {
	if timeout <= 0 {
		timeout = s.ttl
	}

	// Items() hides entries whose cache TTL has already lapsed, so reclaim
	// those first and count them as evicted too.
	before := s.cache.ItemCount()
	s.cache.DeleteExpired()
	evicted := before - s.cache.ItemCount()

	now := time.Now()
	for key, item := range s.cache.Items() {
		peer, ok := item.Object.(*Peer)
		if !ok {
			continue
		}
		if now.Sub(peer.LastSeen) > timeout {
			s.cache.Delete(key)
			evicted++
		}
	}
	return evicted
}

// Range calls fn for every peer currently tracked. fn must not mutate the
// store.
func (s *Store) Range(fn func(p *Peer)) {
	for _, item := range s.cache.Items() {
		if peer, ok := item.Object.(*Peer); ok {
			fn(peer)
		}
	}
}
