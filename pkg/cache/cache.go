package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/folioworks/folio/pkg/observability"
)

// Config controls cache sizing and expiry.
type Config struct {
	MaxEntries int
	TTL        map[string]time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() *Config {
	return &Config{
		MaxEntries: 4096,
		TTL: map[string]time.Duration{
			"profile":  5 * time.Minute,
			"corpus":   5 * time.Minute,
			"document": 1 * time.Minute,
			"badge":    15 * time.Minute,
			"list":     30 * time.Second,
		},
	}
}

const defaultTTL = time.Minute

// TwoTier is the layered cache. The Redis tier is optional; with a nil
// client the cache degrades to in-process only.
type TwoTier struct {
	config  *Config
	memory  *lru.LRU[string, []byte]
	redis   *redis.Client
	metrics *observability.Metrics
}

// New creates a two-tier cache. redisClient and metrics may be nil.
func New(config *Config, redisClient *redis.Client, metrics *observability.Metrics) *TwoTier {
	if config == nil {
		config = DefaultConfig()
	}
	if config.MaxEntries < 16 {
		config.MaxEntries = 16
	}

	memory := lru.NewLRU[string, []byte](config.MaxEntries, nil, defaultTTL)

	return &TwoTier{
		config:  config,
		memory:  memory,
		redis:   redisClient,
		metrics: metrics,
	}
}

// Key builds a subject-scoped cache key. Subject scoping keeps one
// subject's cached view from leaking to another.
func Key(keyType string, subjectID int64, parts ...interface{}) string {
	key := fmt.Sprintf("%s:sub:%d", keyType, subjectID)
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

// Get looks the key up in memory first, then Redis. A Redis hit is
// promoted into memory.
func (c *TwoTier) Get(ctx context.Context, keyType, key string) ([]byte, bool) {
	if val, ok := c.memory.Get(key); ok {
		c.recordHit("memory", keyType)
		return val, true
	}
	c.recordMiss("memory", keyType)

	if c.redis == nil {
		return nil, false
	}

	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		c.recordMiss("redis", keyType)
		return nil, false
	}
	c.recordHit("redis", keyType)
	c.memory.Add(key, val)
	return val, true
}

// Set writes the value to both tiers. Redis write failures are
// swallowed; the cache is best-effort.
func (c *TwoTier) Set(ctx context.Context, keyType, key string, val []byte) {
	c.memory.Add(key, val)

	if c.redis == nil {
		return
	}
	c.redis.Set(ctx, key, val, c.ttlFor(keyType))
}

// Delete removes the key from both tiers.
func (c *TwoTier) Delete(ctx context.Context, key string) {
	c.memory.Remove(key)
	if c.redis != nil {
		c.redis.Del(ctx, key)
	}
}

// Purge clears the in-process tier. The Redis tier expires on its own.
func (c *TwoTier) Purge() {
	c.memory.Purge()
}

// Len reports the number of entries in the in-process tier.
func (c *TwoTier) Len() int {
	return c.memory.Len()
}

func (c *TwoTier) ttlFor(keyType string) time.Duration {
	if ttl, ok := c.config.TTL[keyType]; ok {
		return ttl
	}
	return defaultTTL
}

func (c *TwoTier) recordHit(tier, keyType string) {
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.WithLabelValues(tier, keyType).Inc()
	}
}

func (c *TwoTier) recordMiss(tier, keyType string) {
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.WithLabelValues(tier, keyType).Inc()
	}
}
