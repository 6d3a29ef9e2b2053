package taxrate

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/qhato/taxorders/internal/geozone"
	"github.com/qhato/taxorders/pkg/errors"
	"github.com/qhato/taxorders/pkg/logger"
)

// Catalog answers tax-rate-breakdown lookups by reporting code. It holds
// the full set of entries in memory, loaded once at startup; lookups never
// touch the database.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Breakdown
}

// NewCatalog builds a Catalog from a map of raw, per-reporting-code rate
// payloads (each payload must contain exactly the four fixed categories).
// A malformed entry is a fatal configuration error, not a per-lookup one.
func NewCatalog(raw map[string]json.RawMessage) (*Catalog, error) {
	entries := make(map[string]Breakdown, len(raw))
	for rawCode, msg := range raw {
		code, err := geozone.NormalizeReportingCode(rawCode)
		if err != nil {
			return nil, errors.ValidationError("invalid reporting code in tax rate catalog: " + err.Error())
		}

		var p payload
		if err := json.Unmarshal(msg, &p); err != nil {
			return nil, errors.ValidationError("invalid rate payload for " + code + ": " + err.Error())
		}
		if err := p.validate(code); err != nil {
			return nil, errors.ValidationError(err.Error())
		}
		entries[code] = p.toBreakdown(code)
	}
	return &Catalog{entries: entries}, nil
}

// Lookup returns the breakdown for a reporting code, or ok=false if the
// catalog has no entry for it.
func (c *Catalog) Lookup(reportingCode string) (Breakdown, bool) {
	code, err := geozone.NormalizeReportingCode(reportingCode)
	if err != nil {
		return Breakdown{}, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.entries[code]
	return b, ok
}

// Len reports how many reporting codes the catalog currently holds.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedCatalog wraps a Catalog with a write-through second-level cache (a
// Redis hash, or the in-process memCache when no Redis client is
// configured): the cache mirrors the in-memory catalog; with Redis it is
// shared by other processes and survives restarts, while memCache lives only
// as long as the process. Cache failures never fail a lookup; they are
// logged and the in-memory catalog is used directly.
type CachedCatalog struct {
	base  *Catalog
	cache distributedCache
}

func NewCachedCatalog(base *Catalog, cache distributedCache) *CachedCatalog {
	return &CachedCatalog{base: base, cache: cache}
}

// WarmFromCache populates the base catalog's entries from the distributed
// hash, if present, before falling back to whatever was loaded locally.
// This lets a freshly started process pick up entries written by another
// process without re-parsing the catalog source.
func (c *CachedCatalog) WarmFromCache(ctx context.Context) error {
	if c.cache == nil {
		return nil
	}
	raw, err := c.cache.getAll(ctx)
	if err != nil {
		logger.WithError(err).Warn("tax rate cache warm failed, continuing with local catalog")
		return nil
	}
	for code, msg := range raw {
		var b Breakdown
		if err := json.Unmarshal(msg, &b); err != nil {
			continue
		}
		c.base.mu.Lock()
		c.base.entries[code] = b
		c.base.mu.Unlock()
	}
	return nil
}

// Lookup delegates to the in-memory catalog.
func (c *CachedCatalog) Lookup(reportingCode string) (Breakdown, bool) {
	return c.base.Lookup(reportingCode)
}

// Flush writes the full in-memory catalog to the distributed hash in a
// single HSET call. It is advisory: a failure here never fails whatever
// operation triggered the flush.
func (c *CachedCatalog) Flush(ctx context.Context) {
	if c.cache == nil {
		return
	}
	c.base.mu.RLock()
	snapshot := make(map[string]Breakdown, len(c.base.entries))
	for k, v := range c.base.entries {
		snapshot[k] = v
	}
	c.base.mu.RUnlock()

	if err := c.cache.setAll(ctx, snapshot); err != nil {
		logger.WithError(err).Warn("tax rate cache flush failed")
	}
}
