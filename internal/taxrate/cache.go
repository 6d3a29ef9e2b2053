package taxrate

import (
	"context"
	"encoding/json"
	"fmt"

	gocache "github.com/patrickmn/go-cache"
	"github.com/qhato/taxorders/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// hashCacheKey is the single Redis hash the entire catalog round-trips
// through: one field per reporting code, one HSET/HGETALL per flush/warm.
const hashCacheKey = "tax_rate_catalog"

// distributedCache is the second-level store CachedCatalog writes through
// to. hashCache (Redis) and memCache (go-cache, single-node fallback) both
// satisfy it.
type distributedCache interface {
	getAll(ctx context.Context) (map[string]json.RawMessage, error)
	setAll(ctx context.Context, entries map[string]Breakdown) error
}

// NewCache picks the distributed cache backend: Redis when client is
// non-nil, otherwise an in-process fallback for single-node deployments and
// tests that run without a Redis endpoint configured.
func NewCache(client *redis.Client) distributedCache {
	if client == nil {
		return NewMemoryCache()
	}
	return NewHashCache(client)
}

// hashCache wraps the single Redis hash used as the tax rate catalog's
// distributed cache layer. It exposes only whole-hash reads and writes,
// because the catalog is flushed and warmed as one unit rather than per-key.
type hashCache struct {
	client *redis.Client
	key    string
}

func NewHashCache(client *redis.Client) *hashCache {
	return &hashCache{client: client, key: hashCacheKey}
}

func (h *hashCache) getAll(ctx context.Context) (map[string]json.RawMessage, error) {
	raw, err := h.client.HGetAll(ctx, h.key).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", h.key, err)
	}
	out := make(map[string]json.RawMessage, len(raw))
	for field, val := range raw {
		out[field] = json.RawMessage(val)
	}
	return out, nil
}

func (h *hashCache) setAll(ctx context.Context, entries map[string]Breakdown) error {
	if len(entries) == 0 {
		return nil
	}
	fields := make(map[string]interface{}, len(entries))
	for code, b := range entries {
		data, err := json.Marshal(b)
		if err != nil {
			logger.WithError(err).WithField("reporting_code", code).Warn("failed to marshal breakdown for cache flush")
			continue
		}
		fields[code] = data
	}
	if err := h.client.HSet(ctx, h.key, fields).Err(); err != nil {
		return fmt.Errorf("hset %s: %w", h.key, err)
	}
	return nil
}

// memCache is the in-process fallback distributed cache, backed by
// patrickmn/go-cache, used when no Redis endpoint is configured. It gives
// single-node deployments and tests the same write-through warm/flush
// semantics as hashCache without a network hop; entries never expire on
// their own since the catalog overwrites the whole snapshot on each flush.
type memCache struct {
	store *gocache.Cache
}

func NewMemoryCache() *memCache {
	return &memCache{store: gocache.New(gocache.NoExpiration, gocache.NoExpiration)}
}

func (m *memCache) getAll(ctx context.Context) (map[string]json.RawMessage, error) {
	items := m.store.Items()
	out := make(map[string]json.RawMessage, len(items))
	for code, item := range items {
		data, ok := item.Object.([]byte)
		if !ok {
			continue
		}
		out[code] = json.RawMessage(data)
	}
	return out, nil
}

func (m *memCache) setAll(ctx context.Context, entries map[string]Breakdown) error {
	for code, b := range entries {
		data, err := json.Marshal(b)
		if err != nil {
			logger.WithError(err).WithField("reporting_code", code).Warn("failed to marshal breakdown for cache flush")
			continue
		}
		m.store.Set(code, data, gocache.NoExpiration)
	}
	return nil
}
