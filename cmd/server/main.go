package main

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/minorway/hero-go"
	"github.com/minorway/hero-go/wire"
)

func main() {
	var (
		port              int
		logLevel          string
		memoryLimitMB     int
		metricsAddr       string
		peerStaleTimeout  time.Duration
		reassemblyTimeout time.Duration
	)

	root := &cobra.Command{
		Use:   "hero-server",
		Short: "Runs a HERO datagram transport server",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(logLevel)
			debug.SetMemoryLimit(int64(memoryLimitMB) * 1024 * 1024)

			reg := prometheus.NewRegistry()
			srv := hero.NewServer(
				hero.WithServerLogger(logger),
				hero.WithPeerStaleTimeout(peerStaleTimeout),
				hero.WithReassemblyTimeout(reassemblyTimeout),
				hero.WithServerMetrics(reg),
			)

			if err := srv.Start(port); err != nil {
				return fmt.Errorf("bind port %d: %w", port, err)
			}
			logger.Info().Int("port", port).Msg("server listening")

			if metricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				go func() {
					logger.Info().Str("addr", metricsAddr).Msg("metrics endpoint listening")
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						logger.Error().Err(err).Msg("metrics listener stopped")
					}
				}()
			}

			handler := hero.PacketHandlerFunc(func(p wire.Packet, host string, port int, reply hero.Reply) {
				logger.Debug().Str("host", host).Int("port", port).Str("flag", p.Flag.String()).Int("bytes", len(p.Payload)).Msg("inbound")
				reply.Send(append([]byte("Echo: "), p.Payload...))
			})

			for {
				srv.Poll(handler)
				time.Sleep(5 * time.Millisecond)
			}
		},
	}

	root.Flags().IntVar(&port, "port", 9999, "UDP port to bind")
	root.Flags().StringVar(&logLevel, "log-level", "info", "log level: debug/info/warn/error")
	root.Flags().IntVar(&memoryLimitMB, "memory-limit", 400, "soft memory limit in MB")
	root.Flags().StringVar(&metricsAddr, "metrics-addr", ":9100", "address to serve /metrics on, empty to disable")
	root.Flags().DurationVar(&peerStaleTimeout, "peer-stale-timeout", hero.DefaultPeerStaleTimeout, "peer eviction threshold")
	root.Flags().DurationVar(&reassemblyTimeout, "reassembly-timeout", hero.DefaultReassemblyTimeout, "fragment reassembly timeout")

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
