package hero

import (
	"os"

	"github.com/rs/zerolog"
)

// defaultLogger matches the reference tunnel's console-writer setup, quieted
// to warn level so embedding an unconfigured Client or Server stays silent
// on a caller's stdout. Pass WithClientLogger/WithServerLogger a
// zerolog.Logger at info or debug to see handshake and packet-level detail.
var defaultLogger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
	Level(zerolog.WarnLevel).
	With().Timestamp().Logger()
