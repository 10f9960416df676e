package rules

import (
	"sync"
	"time"
)

// RulesCache holds the active rule list between store reads
type RulesCache interface {
	// Get returns the cached rules, or nil on a miss or after expiry
	Get() []*Rule

	// Set replaces the cached rules
	Set(rules []*Rule)

	// Invalidate drops the cached rules
	Invalidate()

	// IsValid reports whether Get would hit
	IsValid() bool
}

// CacheConfig holds configuration for cache behavior
type CacheConfig struct {
	// TTL of the cached list. Zero means entries live until invalidated.
	TTL time.Duration
}

// DefaultCacheConfig keeps rules until a mutation invalidates them
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}

// InMemoryRulesCache is a mutex-guarded RulesCache
type InMemoryRulesCache struct {
	rules    []*Rule
	cachedAt time.Time
	valid    bool
	config   CacheConfig
	now      func() time.Time
	mu       sync.RWMutex
}

// NewInMemoryRulesCache creates an empty cache
func NewInMemoryRulesCache(config CacheConfig) *InMemoryRulesCache {
	return &InMemoryRulesCache{
		config: config,
		now:    time.Now,
	}
}

func (c *InMemoryRulesCache) fresh() bool {
	if !c.valid {
		return false
	}
	return c.config.TTL <= 0 || c.now().Sub(c.cachedAt) <= c.config.TTL
}

// Get returns a copy of the cached slice
func (c *InMemoryRulesCache) Get() []*Rule {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fresh() {
		return nil
	}

	out := make([]*Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Set stores a copy of rules
func (c *InMemoryRulesCache) Set(rules []*Rule) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.rules = make([]*Rule, len(rules))
	copy(c.rules, rules)
	c.cachedAt = c.now()
	c.valid = true
}

// Invalidate clears the cache
func (c *InMemoryRulesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.valid = false
	c.rules = nil
}

// IsValid reports whether the cache holds unexpired rules
func (c *InMemoryRulesCache) IsValid() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.fresh()
}
