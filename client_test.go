package hero

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minorway/hero-go/internal/netio"
	"github.com/minorway/hero-go/wire"
)

// rawPeer is a bare UDP socket standing in for a server, letting tests
// drive the client's wire-level behavior without a full Server.
type rawPeer struct {
	ep *netio.Endpoint
}

func newRawPeer(t *testing.T) *rawPeer {
	t.Helper()
	ep := netio.New()
	require.NoError(t, ep.Bind(0))
	return &rawPeer{ep: ep}
}

func (r *rawPeer) recv(t *testing.T, timeout time.Duration) (wire.Packet, string, int) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		data, host, port, ok := r.ep.Recv()
		if ok {
			p, err := wire.Decode(data)
			require.NoError(t, err)
			return p, host, port
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("timed out waiting for packet")
	return wire.Packet{}, "", 0
}

func TestClientConnectHandshake(t *testing.T) {
	peer := newRawPeer(t)
	c := NewClient(WithConnectTimeout(2 * time.Second))

	done := make(chan bool, 1)
	go func() {
		done <- c.Connect("127.0.0.1", peer.ep.LocalPort(), DefaultPubKey)
	}()

	conn, host, port := peer.recv(t, time.Second)
	assert.Equal(t, wire.FlagCONN, conn.Flag)
	assert.Equal(t, DefaultPubKey, conn.Requirements)

	ack := wire.Packet{Flag: wire.FlagSEEN, Version: wire.SupportedVersion, Seq: conn.Seq}
	require.True(t, peer.ep.Send(wire.Encode(ack), host, port))

	assert.True(t, <-done)
	assert.True(t, c.IsConnected())
}

func TestClientConnectTimeout(t *testing.T) {
	peer := newRawPeer(t)
	c := NewClient(WithConnectTimeout(30 * time.Millisecond))

	ok := c.Connect("127.0.0.1", peer.ep.LocalPort(), DefaultPubKey)
	assert.False(t, ok)
	assert.False(t, c.IsConnected())
}

func connectedClient(t *testing.T, peer *rawPeer) *Client {
	t.Helper()
	c := NewClient(WithConnectTimeout(2 * time.Second))
	done := make(chan bool, 1)
	go func() { done <- c.Connect("127.0.0.1", peer.ep.LocalPort(), DefaultPubKey) }()
	conn, host, port := peer.recv(t, time.Second)
	ack := wire.Packet{Flag: wire.FlagSEEN, Version: wire.SupportedVersion, Seq: conn.Seq}
	require.True(t, peer.ep.Send(wire.Encode(ack), host, port))
	require.True(t, <-done)
	return c
}

func TestClientSendUnconnectedFails(t *testing.T) {
	c := NewClient()
	assert.False(t, c.Send([]byte("hi"), nil))
}

func TestClientSendAndServerAck(t *testing.T) {
	peer := newRawPeer(t)
	c := connectedClient(t, peer)

	require.True(t, c.Send([]byte("hello"), nil))
	give, host, port := peer.recv(t, time.Second)
	assert.Equal(t, wire.FlagGIVE, give.Flag)
	assert.Equal(t, []byte("hello"), give.Payload)

	reply := wire.Packet{Flag: wire.FlagGIVE, Version: wire.SupportedVersion, Seq: 77, Payload: []byte("Echo: hello")}
	require.True(t, peer.ep.Send(wire.Encode(reply), host, port))

	got, ok := c.Receive(time.Second)
	require.True(t, ok)
	assert.Equal(t, []byte("Echo: hello"), got.Payload)

	ack, _, _ := peer.recv(t, time.Second)
	assert.Equal(t, wire.FlagSEEN, ack.Flag)
	assert.Equal(t, uint16(77), ack.Seq)
}

func TestClientPingPong(t *testing.T) {
	peer := newRawPeer(t)
	c := connectedClient(t, peer)

	done := make(chan bool, 1)
	go func() { done <- c.Ping() }()

	ping, host, port := peer.recv(t, time.Second)
	assert.Equal(t, wire.FlagPING, ping.Flag)

	pong := wire.Packet{Flag: wire.FlagPONG, Version: wire.SupportedVersion, Seq: ping.Seq}
	require.True(t, peer.ep.Send(wire.Encode(pong), host, port))

	assert.True(t, <-done)
	assert.GreaterOrEqual(t, c.PingMS(), int64(0))
	assert.LessOrEqual(t, c.PingMS(), int64(1000))
}

func TestClientDisconnectSendsStop(t *testing.T) {
	peer := newRawPeer(t)
	c := connectedClient(t, peer)

	c.Disconnect()
	stop, _, _ := peer.recv(t, time.Second)
	assert.Equal(t, wire.FlagSTOP, stop.Flag)
	assert.False(t, c.IsConnected())
}
