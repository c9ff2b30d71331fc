// Package geo resolves client IP addresses to coarse locations and computes
// the distance shown to matched partners. Lookups go to an ip-api.com style
// endpoint and every failure degrades to "location unknown".
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL is the public ip-api.com endpoint.
	DefaultBaseURL = "http://ip-api.com"

	// DefaultTimeout bounds a single lookup. Join must not hang on a slow
	// geolocation backend.
	DefaultTimeout = 3 * time.Second

	// DefaultCacheTTL is how long a resolved location stays cached.
	DefaultCacheTTL = time.Hour
)

// Config holds resolver settings.
type Config struct {
	// BaseURL of the lookup service, without a trailing slash.
	BaseURL string

	// Timeout for a single HTTP lookup.
	Timeout time.Duration
}

// Resolver looks up locations over HTTP with a cache in front.
type Resolver struct {
	client  *http.Client
	baseURL string
	cache   Cache
	logger  *slog.Logger
}

// NewResolver creates a resolver backed by the given cache. Zero-value config
// fields fall back to the package defaults.
func NewResolver(cfg Config, cache Cache, logger *slog.Logger) *Resolver {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Resolver{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		cache:   cache,
		logger:  logger,
	}
}

// apiResponse is the subset of the ip-api.com JSON answer we consume.
type apiResponse struct {
	Status     string  `json:"status"`
	Country    string  `json:"country"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
}

// Locate resolves addr to a coarse location. It returns (nil, nil) when the
// address is private, unparseable, or simply unknown to the lookup service;
// a non-nil error is only returned for transport-level failures so callers
// can log them, but they should still treat the location as absent.
func (r *Resolver) Locate(ctx context.Context, addr string) (*Location, error) {
	ip := net.ParseIP(addr)
	if ip == nil || ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() {
		return nil, nil
	}

	key := ip.String()
	if loc, ok := r.cache.Get(ctx, key); ok {
		return loc, nil
	}

	loc, err := r.lookup(ctx, key)
	if err != nil {
		return nil, err
	}

	r.cache.Set(ctx, key, loc)
	return loc, nil
}

func (r *Resolver) lookup(ctx context.Context, ip string) (*Location, error) {
	url := fmt.Sprintf("%s/json/%s?fields=status,country,regionName,city,lat,lon", r.baseURL, ip)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geo lookup: unexpected status %d", resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("geo lookup: %w", err)
	}

	if body.Status != "success" {
		// The service answered but doesn't know this address.
		r.logger.Debug("geo lookup had no answer", "ip", ip)
		return nil, nil
	}

	lat, lon := body.Lat, body.Lon
	return &Location{
		Country:   body.Country,
		Region:    body.RegionName,
		City:      body.City,
		Latitude:  &lat,
		Longitude: &lon,
	}, nil
}
