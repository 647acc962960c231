package hero

import "github.com/minorway/hero-go/command"

// Reply lets a PacketHandler answer the peer that triggered it, instead of
// a back-reference stored on the packet. It is created fresh for each
// handler call and holds only the Server and the peer's address; a copy
// kept past the call still sends through that Server.
type Reply struct {
	server *Server
	host   string
	port   int
}

// Send transmits payload back to the peer that produced the packet this
// Reply was handed for.
func (r Reply) Send(payload []byte) bool {
	return r.server.SendTo(r.host, r.port, payload)
}

// SendCommand encodes mnemonic and args with command.Encode and sends the
// result back to the originating peer.
func (r Reply) SendCommand(mnemonic string, args []string) bool {
	return r.Send(command.Encode(mnemonic, args))
}
