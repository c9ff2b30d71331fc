package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default configuration values
const (
	DefaultAddr        = ":8080"
	DefaultUploadDir   = "uploads"
	DefaultMaxUploadMB = 25
	DefaultGeoBaseURL  = "http://ip-api.com"
	DefaultGeoCacheTTL = time.Hour
)

// Config holds application configuration
type Config struct {
	// Addr is the HTTP listen address
	Addr string

	// UploadDir is where media uploads are stored on disk
	UploadDir string

	// MaxUploadBytes caps the size of a single upload
	MaxUploadBytes int64

	// GeoBaseURL is the geolocation lookup endpoint
	GeoBaseURL string

	// GeoCacheTTL is how long resolved locations stay cached
	GeoCacheTTL time.Duration

	// RedisAddr enables the Redis-backed geolocation cache when set;
	// empty means the in-process cache
	RedisAddr string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Addr      string
	UploadDir string
	RedisAddr string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	// Listen address: CLI flag > env > default
	addr := opts.Addr
	if addr == "" {
		addr = os.Getenv("ADDR")
	}
	if addr == "" {
		addr = DefaultAddr
	}

	// Upload directory: CLI flag > env > default
	uploadDir := opts.UploadDir
	if uploadDir == "" {
		uploadDir = os.Getenv("UPLOAD_DIR")
	}
	if uploadDir == "" {
		uploadDir = DefaultUploadDir
	}

	// Upload size cap in megabytes: env > default
	maxUploadMB := int64(DefaultMaxUploadMB)
	if v := os.Getenv("MAX_UPLOAD_MB"); v != "" {
		mb, err := strconv.ParseInt(v, 10, 64)
		if err != nil || mb <= 0 {
			return nil, fmt.Errorf("config: invalid MAX_UPLOAD_MB %q", v)
		}
		maxUploadMB = mb
	}

	// Geolocation endpoint: env > default
	geoBaseURL := os.Getenv("GEO_BASE_URL")
	if geoBaseURL == "" {
		geoBaseURL = DefaultGeoBaseURL
	}

	// Geolocation cache TTL: env > default
	geoCacheTTL := DefaultGeoCacheTTL
	if v := os.Getenv("GEO_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl <= 0 {
			return nil, fmt.Errorf("config: invalid GEO_CACHE_TTL %q", v)
		}
		geoCacheTTL = ttl
	}

	// Redis address: CLI flag > env, no default (optional)
	redisAddr := opts.RedisAddr
	if redisAddr == "" {
		redisAddr = os.Getenv("REDIS_ADDR")
	}

	return &Config{
		Addr:           addr,
		UploadDir:      uploadDir,
		MaxUploadBytes: maxUploadMB << 20,
		GeoBaseURL:     geoBaseURL,
		GeoCacheTTL:    geoCacheTTL,
		RedisAddr:      redisAddr,
	}, nil
}
