// Package netio implements the HERO Datagram Endpoint: a thin, non-blocking
// wrapper around a UDP socket. It performs no framing and interprets no
// bytes; it only binds, sends, and receives.
package netio

import (
	"errors"
	"net"
	"strconv"
	"time"
)

// recvBufferSize comfortably covers the largest single HERO datagram
// (header + requirements + up to ChunkCapacity-sized fragment payload) plus
// headroom under the UDP payload ceiling.
const recvBufferSize = 65535

// Endpoint binds one local UDP port and exchanges raw datagrams over it.
// It is not safe for concurrent use from multiple goroutines: endpoint
// state is owned exclusively by whichever Client or Server created it.
type Endpoint struct {
	conn *net.UDPConn
	buf  []byte
}

// New returns an unbound Endpoint.
func New() *Endpoint {
	return &Endpoint{buf: make([]byte, recvBufferSize)}
}

// Bind associates the endpoint with a local UDP port. Port 0 lets the OS
// assign an ephemeral port, useful for client-side sockets and tests.
func (e *Endpoint) Bind(port int) error {
	conn, err := net.ListenUDP("udp", &net.UDPAddr{Port: port})
	if err != nil {
		return err
	}
	e.conn = conn
	return nil
}

// LocalPort returns the bound local port, or 0 if unbound.
func (e *Endpoint) LocalPort() int {
	if e.conn == nil {
		return 0
	}
	if addr, ok := e.conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.Port
	}
	return 0
}

// Close releases the underlying socket.
func (e *Endpoint) Close() error {
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}

// Send attempts a single non-blocking sendto and reports whether the OS
// accepted the bytes. There is no retry at this layer: a false return means
// the caller should decide whether and how to try again.
func (e *Endpoint) Send(b []byte, host string, port int) bool {
	if e.conn == nil {
		return false
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	n, err := e.conn.WriteToUDP(b, addr)
	return err == nil && n == len(b)
}

// Recv returns the next available datagram without blocking. ok is false
// when no datagram is currently available; Recv never blocks or loops
// internally to wait for one.
func (e *Endpoint) Recv() (data []byte, host string, port int, ok bool) {
	if e.conn == nil {
		return nil, "", 0, false
	}

	// A read deadline of "now" makes ReadFromUDP return immediately with a
	// timeout error if nothing is pending, which is how this package gets
	// non-blocking semantics out of the stdlib's blocking socket API
	// without spawning a reader goroutine of its own.
	if err := e.conn.SetReadDeadline(time.Now()); err != nil {
		return nil, "", 0, false
	}

	n, addr, err := e.conn.ReadFromUDP(e.buf)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return nil, "", 0, false
		}
		return nil, "", 0, false
	}

	out := make([]byte, n)
	copy(out, e.buf[:n])
	return out, addr.IP.String(), addr.Port, true
}
