package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/meetly/signal-server/internal/origin"
)

type Mode string

const (
	ModeDev  Mode = "dev"
	ModeProd Mode = "prod"
)

type AuthMode string

const (
	AuthModeNone AuthMode = "none"
	AuthModeJWT  AuthMode = "jwt"
)

type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

const (
	DefaultListenAddr      = "127.0.0.1:8000"
	DefaultShutdownTimeout = 15 * time.Second
	DefaultMode            = ModeDev
	DefaultAuthMode        = AuthModeJWT

	DefaultMaxSignalingMessageBytes      = int64(64 * 1024)
	DefaultMaxSignalingMessagesPerSecond = 50
	DefaultSignalingWSIdleTimeout        = 60 * time.Second
	DefaultSignalingWSPingInterval       = 20 * time.Second
	DefaultSendQueueDepth                = 64

	DefaultRoomIdleTTL       = 10 * time.Minute
	DefaultRoomSweepInterval = time.Minute
)

// Config carries every runtime knob for the signaling server. All values are
// validated once at startup; components receive a Config by value and never
// re-read the environment.
type Config struct {
	ListenAddr      string
	Mode            Mode
	LogFormat       LogFormat
	LogLevel        slog.Level
	ShutdownTimeout time.Duration

	// Connection-time authentication.
	AuthMode  AuthMode
	JWTSecret string

	// AllowedOrigins lists browser origins accepted on the WebSocket upgrade.
	// Entries are normalized origins ("https://app.example.com") or "*". Empty
	// means same-host only; requests without an Origin header always pass.
	AllowedOrigins []string

	// WebSocket inbound hardening.
	MaxSignalingMessageBytes      int64
	MaxSignalingMessagesPerSecond int
	SignalingWSIdleTimeout        time.Duration
	SignalingWSPingInterval       time.Duration

	// SendQueueDepth is the per-connection outbound buffer, in frames. A client
	// whose queue is full has further frames dropped rather than blocking the
	// sender.
	SendQueueDepth int

	// Stale-room reclamation.
	RoomIdleTTL       time.Duration
	RoomSweepInterval time.Duration
}

// Load reads configuration from an optional signal-server.yaml in the working
// directory plus MEETLY_-prefixed environment variables (env wins). Unset keys
// fall back to the defaults above.
func Load() (Config, error) {
	v := viper.New()

	v.SetDefault("listen_addr", DefaultListenAddr)
	v.SetDefault("mode", string(DefaultMode))
	v.SetDefault("log_format", "")
	v.SetDefault("log_level", "info")
	v.SetDefault("shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("auth_mode", string(DefaultAuthMode))
	v.SetDefault("jwt_secret", "")
	v.SetDefault("allowed_origins", "")

	v.SetDefault("max_signaling_message_bytes", DefaultMaxSignalingMessageBytes)
	v.SetDefault("max_signaling_messages_per_second", DefaultMaxSignalingMessagesPerSecond)
	v.SetDefault("signaling_ws_idle_timeout", DefaultSignalingWSIdleTimeout)
	v.SetDefault("signaling_ws_ping_interval", DefaultSignalingWSPingInterval)
	v.SetDefault("send_queue_depth", DefaultSendQueueDepth)

	v.SetDefault("room_idle_ttl", DefaultRoomIdleTTL)
	v.SetDefault("room_sweep_interval", DefaultRoomSweepInterval)

	v.SetConfigName("signal-server")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MEETLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		ListenAddr:      v.GetString("listen_addr"),
		Mode:            Mode(strings.ToLower(strings.TrimSpace(v.GetString("mode")))),
		ShutdownTimeout: v.GetDuration("shutdown_timeout"),

		AuthMode:  AuthMode(strings.ToLower(strings.TrimSpace(v.GetString("auth_mode")))),
		JWTSecret: v.GetString("jwt_secret"),

		AllowedOrigins: splitCommaList(v.GetString("allowed_origins")),

		MaxSignalingMessageBytes:      v.GetInt64("max_signaling_message_bytes"),
		MaxSignalingMessagesPerSecond: v.GetInt("max_signaling_messages_per_second"),
		SignalingWSIdleTimeout:        v.GetDuration("signaling_ws_idle_timeout"),
		SignalingWSPingInterval:       v.GetDuration("signaling_ws_ping_interval"),
		SendQueueDepth:                v.GetInt("send_queue_depth"),

		RoomIdleTTL:       v.GetDuration("room_idle_ttl"),
		RoomSweepInterval: v.GetDuration("room_sweep_interval"),
	}

	switch cfg.Mode {
	case ModeDev, ModeProd:
	default:
		return Config{}, fmt.Errorf("invalid mode %q (want dev or prod)", cfg.Mode)
	}

	logFormat := strings.ToLower(strings.TrimSpace(v.GetString("log_format")))
	if logFormat == "" {
		logFormat = defaultLogFormatForMode(cfg.Mode)
	}
	cfg.LogFormat = LogFormat(logFormat)
	switch cfg.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return Config{}, fmt.Errorf("invalid log_format %q (want text or json)", logFormat)
	}

	level, err := parseLogLevel(v.GetString("log_level"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr must not be empty")
	}

	switch c.AuthMode {
	case AuthModeNone:
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("auth_mode=jwt requires jwt_secret")
		}
	default:
		return fmt.Errorf("invalid auth_mode %q (want none or jwt)", c.AuthMode)
	}

	for _, o := range c.AllowedOrigins {
		if o == "*" {
			continue
		}
		normalized, _, ok := origin.NormalizeHeader(o)
		if !ok || normalized != o {
			return fmt.Errorf("invalid allowed_origins entry %q (want a normalized origin like https://app.example.com, or *)", o)
		}
	}

	if c.MaxSignalingMessageBytes <= 0 {
		return fmt.Errorf("max_signaling_message_bytes must be positive")
	}
	if c.MaxSignalingMessagesPerSecond <= 0 {
		return fmt.Errorf("max_signaling_messages_per_second must be positive")
	}
	if c.SendQueueDepth <= 0 {
		return fmt.Errorf("send_queue_depth must be positive")
	}
	if c.SignalingWSIdleTimeout <= 0 || c.SignalingWSPingInterval <= 0 {
		return fmt.Errorf("signaling ws timeouts must be positive")
	}
	if c.SignalingWSPingInterval >= c.SignalingWSIdleTimeout {
		return fmt.Errorf("signaling_ws_ping_interval must be shorter than signaling_ws_idle_timeout")
	}

	if c.RoomIdleTTL < 0 {
		return fmt.Errorf("room_idle_ttl must not be negative")
	}
	if c.RoomIdleTTL > 0 && c.RoomSweepInterval <= 0 {
		return fmt.Errorf("room_sweep_interval must be positive when room_idle_ttl is set")
	}

	return nil
}

func splitCommaList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultLogFormatForMode(mode Mode) string {
	if mode == ModeProd {
		return string(LogFormatJSON)
	}
	return string(LogFormatText)
}

func parseLogLevel(raw string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log_level %q", raw)
	}
}

func NewLogger(cfg Config) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	switch cfg.LogFormat {
	case LogFormatText:
		handler = slog.NewTextHandler(os.Stdout, opts)
	case LogFormatJSON:
		handler = slog.NewJSONHandler(os.Stdout, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", cfg.LogFormat)
	}

	return slog.New(handler), nil
}
