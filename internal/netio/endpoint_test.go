package netio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendRecvRoundTrip(t *testing.T) {
	a := New()
	require.NoError(t, a.Bind(0))
	defer a.Close()

	b := New()
	require.NoError(t, b.Bind(0))
	defer b.Close()

	ok := a.Send([]byte("ping"), "127.0.0.1", b.LocalPort())
	require.True(t, ok)

	var data []byte
	var recvOK bool
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, _, _, recvOK = b.Recv()
		if recvOK {
			break
		}
		time.Sleep(time.Millisecond)
	}
	require.True(t, recvOK)
	assert.Equal(t, "ping", string(data))
}

func TestRecvNeverBlocksWhenEmpty(t *testing.T) {
	a := New()
	require.NoError(t, a.Bind(0))
	defer a.Close()

	start := time.Now()
	_, _, _, ok := a.Recv()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestRecvOnUnboundEndpoint(t *testing.T) {
	a := New()
	_, _, _, ok := a.Recv()
	assert.False(t, ok)
}

func TestSendOnUnboundEndpoint(t *testing.T) {
	a := New()
	ok := a.Send([]byte("x"), "127.0.0.1", 9)
	assert.False(t, ok)
}
