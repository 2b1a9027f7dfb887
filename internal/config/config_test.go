package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEETLY_AUTH_MODE", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != DefaultListenAddr {
		t.Errorf("ListenAddr=%q, want %q", cfg.ListenAddr, DefaultListenAddr)
	}
	if cfg.Mode != ModeDev {
		t.Errorf("Mode=%q, want dev", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatText {
		t.Errorf("LogFormat=%q, want text in dev mode", cfg.LogFormat)
	}
	if cfg.MaxSignalingMessageBytes != DefaultMaxSignalingMessageBytes {
		t.Errorf("MaxSignalingMessageBytes=%d, want %d", cfg.MaxSignalingMessageBytes, DefaultMaxSignalingMessageBytes)
	}
	if cfg.RoomIdleTTL != DefaultRoomIdleTTL {
		t.Errorf("RoomIdleTTL=%v, want %v", cfg.RoomIdleTTL, DefaultRoomIdleTTL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MEETLY_LISTEN_ADDR", "0.0.0.0:9100")
	t.Setenv("MEETLY_MODE", "prod")
	t.Setenv("MEETLY_LOG_LEVEL", "debug")
	t.Setenv("MEETLY_AUTH_MODE", "jwt")
	t.Setenv("MEETLY_JWT_SECRET", "sekrit")
	t.Setenv("MEETLY_SIGNALING_WS_IDLE_TIMEOUT", "90s")
	t.Setenv("MEETLY_ROOM_IDLE_TTL", "5m")
	t.Setenv("MEETLY_ALLOWED_ORIGINS", "https://app.example.com, *")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:9100" {
		t.Errorf("ListenAddr=%q", cfg.ListenAddr)
	}
	if cfg.Mode != ModeProd {
		t.Errorf("Mode=%q, want prod", cfg.Mode)
	}
	if cfg.LogFormat != LogFormatJSON {
		t.Errorf("LogFormat=%q, want json default in prod mode", cfg.LogFormat)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel=%v, want debug", cfg.LogLevel)
	}
	if cfg.JWTSecret != "sekrit" {
		t.Errorf("JWTSecret=%q", cfg.JWTSecret)
	}
	if cfg.SignalingWSIdleTimeout != 90*time.Second {
		t.Errorf("SignalingWSIdleTimeout=%v", cfg.SignalingWSIdleTimeout)
	}
	if cfg.RoomIdleTTL != 5*time.Minute {
		t.Errorf("RoomIdleTTL=%v", cfg.RoomIdleTTL)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://app.example.com" || cfg.AllowedOrigins[1] != "*" {
		t.Errorf("AllowedOrigins=%v", cfg.AllowedOrigins)
	}
}

func TestLoadValidation(t *testing.T) {
	t.Run("jwt requires secret", func(t *testing.T) {
		t.Setenv("MEETLY_AUTH_MODE", "jwt")
		t.Setenv("MEETLY_JWT_SECRET", "")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for auth_mode=jwt without secret")
		}
	})

	t.Run("bad mode", func(t *testing.T) {
		t.Setenv("MEETLY_AUTH_MODE", "none")
		t.Setenv("MEETLY_MODE", "staging")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid mode")
		}
	})

	t.Run("ping must be shorter than idle", func(t *testing.T) {
		t.Setenv("MEETLY_AUTH_MODE", "none")
		t.Setenv("MEETLY_SIGNALING_WS_IDLE_TIMEOUT", "10s")
		t.Setenv("MEETLY_SIGNALING_WS_PING_INTERVAL", "30s")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for ping >= idle")
		}
	})

	t.Run("allowed origins must be normalized", func(t *testing.T) {
		t.Setenv("MEETLY_AUTH_MODE", "none")
		t.Setenv("MEETLY_ALLOWED_ORIGINS", "example.com")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for scheme-less origin")
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		t.Setenv("MEETLY_AUTH_MODE", "none")
		t.Setenv("MEETLY_LOG_LEVEL", "verbose")
		if _, err := Load(); err == nil {
			t.Fatalf("expected error for invalid log level")
		}
	})
}
