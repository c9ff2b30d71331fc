package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != DefaultAddr {
		t.Errorf("Addr = %q, want %q", cfg.Addr, DefaultAddr)
	}
	if cfg.UploadDir != DefaultUploadDir {
		t.Errorf("UploadDir = %q, want %q", cfg.UploadDir, DefaultUploadDir)
	}
	if cfg.MaxUploadBytes != DefaultMaxUploadMB<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, DefaultMaxUploadMB<<20)
	}
	if cfg.GeoCacheTTL != DefaultGeoCacheTTL {
		t.Errorf("GeoCacheTTL = %v, want %v", cfg.GeoCacheTTL, DefaultGeoCacheTTL)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("RedisAddr = %q, want empty", cfg.RedisAddr)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("ADDR", ":9999")
	t.Setenv("MAX_UPLOAD_MB", "5")
	t.Setenv("GEO_CACHE_TTL", "30m")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Addr != ":9999" {
		t.Errorf("Addr = %q, want :9999", cfg.Addr)
	}
	if cfg.MaxUploadBytes != 5<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 5<<20)
	}
	if cfg.GeoCacheTTL != 30*time.Minute {
		t.Errorf("GeoCacheTTL = %v, want 30m", cfg.GeoCacheTTL)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("RedisAddr = %q", cfg.RedisAddr)
	}
}

func TestLoadFlagBeatsEnv(t *testing.T) {
	t.Setenv("ADDR", ":9999")

	cfg, err := Load(Options{Addr: ":7777"})
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Addr != ":7777" {
		t.Errorf("Addr = %q, want flag value :7777", cfg.Addr)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Setenv("MAX_UPLOAD_MB", "zero")
	if _, err := Load(Options{}); err == nil {
		t.Error("Load() with bad MAX_UPLOAD_MB should fail")
	}
}
