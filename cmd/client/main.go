package main

import (
	"fmt"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/minorway/hero-go"
)

func main() {
	var (
		host           string
		port           int
		message        string
		logLevel       string
		memoryLimitMB  int
		connectTimeout time.Duration
		receiveWait    time.Duration
	)

	root := &cobra.Command{
		Use:   "hero-client",
		Short: "Connects to a HERO server, sends one message, and prints the reply",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			debug.SetMemoryLimit(int64(memoryLimitMB) * 1024 * 1024)

			c := hero.NewClient(
				hero.WithClientLogger(logger),
				hero.WithConnectTimeout(connectTimeout),
			)

			if !c.Connect(host, port, hero.DefaultPubKey) {
				return fmt.Errorf("connect to %s:%d failed", host, port)
			}
			logger.Info().Str("host", host).Int("port", port).Msg("connected")
			defer c.Disconnect()

			if !c.Send([]byte(message), nil) {
				return fmt.Errorf("send failed")
			}

			reply, ok := c.Receive(receiveWait)
			if !ok {
				return fmt.Errorf("no reply within %s", receiveWait)
			}
			fmt.Println(string(reply.Payload))
			return nil
		},
	}

	root.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	root.Flags().IntVar(&port, "port", 9999, "server port")
	root.Flags().StringVar(&message, "message", "hello", "payload to send")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug/info/warn/error")
	root.Flags().IntVar(&memoryLimitMB, "memory-limit", 200, "soft memory limit in MB")
	root.Flags().DurationVar(&connectTimeout, "connect-timeout", hero.DefaultConnectTimeout, "handshake timeout")
	root.Flags().DurationVar(&receiveWait, "receive-wait", 2*time.Second, "how long to wait for a reply")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger(level string) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	switch level {
	case "debug":
		return logger.Level(zerolog.DebugLevel)
	case "info":
		return logger.Level(zerolog.InfoLevel)
	case "warn":
		return logger.Level(zerolog.WarnLevel)
	case "error":
		return logger.Level(zerolog.ErrorLevel)
	default:
		logger.Fatal().Str("level", level).Msg("invalid log level")
		return logger
	}
}
