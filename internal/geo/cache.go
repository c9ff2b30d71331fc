package geo

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache stores resolved locations keyed by IP address. Implementations treat
// every failure as a miss; the resolver never fails because its cache did.
type Cache interface {
	// Get retrieves a cached location. The boolean reports a cache hit; a
	// hit may still carry a nil location (a remembered "unknown" answer).
	Get(ctx context.Context, ip string) (*Location, bool)

	// Set stores a location for the given IP.
	Set(ctx context.Context, ip string, loc *Location)
}

type memoryEntry struct {
	loc      *Location
	deadline time.Time
}

// memoryCache is the default in-process cache, a TTL map.
type memoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryCache creates an in-process location cache whose entries expire
// after ttl.
func NewMemoryCache(ttl time.Duration) Cache {
	return &memoryCache{
		ttl:     ttl,
		entries: make(map[string]memoryEntry),
	}
}

func (c *memoryCache) Get(_ context.Context, ip string) (*Location, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[ip]
	if !ok {
		return nil, false
	}
	if time.Now().After(e.deadline) {
		delete(c.entries, ip)
		return nil, false
	}
	return e.loc, true
}

func (c *memoryCache) Set(_ context.Context, ip string, loc *Location) {
	c.mu.Lock()
	c.entries[ip] = memoryEntry{loc: loc, deadline: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// redisCache keeps resolved locations in Redis so restarts and multiple
// deploys of the lookup side share one pool of answers.
type redisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache creates a Redis-backed location cache. Entries are stored as
// JSON under "geo:<ip>" and expire after ttl.
func NewRedisCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) Cache {
	return &redisCache{
		client: client,
		prefix: "geo:",
		ttl:    ttl,
		logger: logger,
	}
}

func (c *redisCache) Get(ctx context.Context, ip string) (*Location, bool) {
	data, err := c.client.Get(ctx, c.prefix+ip).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("geo cache get failed", "ip", ip, "error", err)
		}
		return nil, false
	}

	// An empty value is a remembered "unknown" answer.
	if len(data) == 0 {
		return nil, true
	}

	var loc Location
	if err := json.Unmarshal(data, &loc); err != nil {
		c.logger.Debug("geo cache entry corrupt", "ip", ip, "error", err)
		return nil, false
	}
	return &loc, true
}

func (c *redisCache) Set(ctx context.Context, ip string, loc *Location) {
	var data []byte
	if loc != nil {
		var err error
		data, err = json.Marshal(loc)
		if err != nil {
			return
		}
	}

	if err := c.client.Set(ctx, c.prefix+ip, data, c.ttl).Err(); err != nil {
		c.logger.Debug("geo cache set failed", "ip", ip, "error", err)
	}
}
