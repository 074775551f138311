// Package cache provides a Redis-backed TTL cache of on-chain verification
// facts. It only ever serves verification reads; issuance always goes to the
// chain. Expiry is recomputed by the verdict layer, so a cached fact stays
// correct even when the credential expires inside the TTL window. Revocation
// is the one state change a cached entry can miss, bounded by the TTL.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"dhruva/internal/registry"
)

const factKeyPrefix = "registry:fact:"

var lookups = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "dhruva_registry_cache_lookups_total",
	Help: "Registry fact cache lookups by result",
}, []string{"result"})

// FactCache stores verification facts with a TTL.
type FactCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New constructs a fact cache. Returns nil when the client is nil (cache
// disabled); callers treat a nil cache as a permanent miss.
func New(client *redis.Client, ttl time.Duration) *FactCache {
	if client == nil {
		return nil
	}
	return &FactCache{client: client, ttl: ttl}
}

// Get returns the cached fact for a hash, with found=false on miss.
// Cache errors degrade to a miss; the chain remains the source of truth.
func (c *FactCache) Get(ctx context.Context, hash string) (registry.Fact, bool) {
	if c == nil {
		return registry.Fact{}, false
	}
	raw, err := c.client.Get(ctx, factKey(hash)).Bytes()
	if errors.Is(err, redis.Nil) {
		lookups.WithLabelValues("miss").Inc()
		return registry.Fact{}, false
	}
	if err != nil {
		lookups.WithLabelValues("error").Inc()
		return registry.Fact{}, false
	}
	var fact registry.Fact
	if err := json.Unmarshal(raw, &fact); err != nil {
		lookups.WithLabelValues("error").Inc()
		return registry.Fact{}, false
	}
	lookups.WithLabelValues("hit").Inc()
	return fact, true
}

// Put stores a fact under its hash. Errors are swallowed: the cache is an
// optimization, never a dependency.
func (c *FactCache) Put(ctx context.Context, hash string, fact registry.Fact) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(fact)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, factKey(hash), raw, c.ttl).Err()
}

// Invalidate drops the cached fact, used right after a revocation so the
// next verification sees the new state immediately.
func (c *FactCache) Invalidate(ctx context.Context, hash string) {
	if c == nil {
		return
	}
	_ = c.client.Del(ctx, factKey(hash)).Err()
}

func factKey(hash string) string {
	return factKeyPrefix + strings.ToLower(strings.TrimSpace(hash))
}
