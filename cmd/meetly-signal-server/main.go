package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/meetly/signal-server/internal/auth"
	"github.com/meetly/signal-server/internal/config"
	"github.com/meetly/signal-server/internal/httpserver"
	"github.com/meetly/signal-server/internal/metrics"
	"github.com/meetly/signal-server/internal/registry"
	"github.com/meetly/signal-server/internal/signaling"
)

var (
	// Set via -ldflags at build time. Values may be empty in local/dev builds.
	buildCommit = ""
	buildTime   = ""
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	slog.SetDefault(logger)

	logger.Info("starting meetly-signal-server",
		"listen_addr", cfg.ListenAddr,
		"mode", cfg.Mode,
		"auth_mode", cfg.AuthMode,
		"max_signaling_message_bytes", cfg.MaxSignalingMessageBytes,
		"max_signaling_messages_per_second", cfg.MaxSignalingMessagesPerSecond,
		"signaling_ws_idle_timeout", cfg.SignalingWSIdleTimeout,
		"signaling_ws_ping_interval", cfg.SignalingWSPingInterval,
		"room_idle_ttl", cfg.RoomIdleTTL,
		"room_sweep_interval", cfg.RoomSweepInterval,
	)

	if cfg.AuthMode == config.AuthModeNone && cfg.Mode == config.ModeProd {
		logger.Warn("running in prod mode without connection authentication")
	}

	var verifier auth.Verifier
	if cfg.AuthMode != config.AuthModeNone {
		verifier, err = auth.NewVerifier(cfg)
		if err != nil {
			logger.Error("failed to configure signaling auth", "err", err)
			os.Exit(2)
		}
	}

	ln, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to listen", "err", err)
		os.Exit(1)
	}

	commit, built := resolveBuildInfo(buildCommit, buildTime)

	srv := httpserver.New(cfg, logger, httpserver.BuildInfo{Commit: commit, BuildTime: built})

	m := metrics.New()
	rooms := registry.New(nil)

	sig := signaling.NewServer(cfg, logger, verifier, rooms, m)
	sig.RegisterRoutes(srv.Mux())

	// Expose internal counters in Prometheus' text format.
	srv.Mux().Handle("GET /metrics", metrics.PrometheusHandler(m))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go rooms.RunSweeper(ctx, cfg.RoomSweepInterval, cfg.RoomIdleTTL, logger, func(n int) {
		m.Add(metrics.RoomsSwept, uint64(n))
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		sig.Close()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server exited", "err", err)
			os.Exit(1)
		}
		return
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", "err", err)
	}
	sig.Close()

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server exited after shutdown", "err", err)
		os.Exit(1)
	}
}

func resolveBuildInfo(commit, built string) (string, string) {
	// Prefer ldflags-injected values (production builds) but fall back to the Go
	// build info when available (useful for `go run` / dev builds).
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if commit == "" {
					commit = s.Value
				}
			case "vcs.time":
				if built == "" {
					built = s.Value
				}
			}
		}
	}

	return commit, built
}
