// Package cache is a typed, TTL-based entity cache keyed by id.
// It wraps patrickmn/go-cache.
package cache

import (
	"strconv"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache holds entities of type V for a limited time.
type Cache[V any] struct {
	store *gocache.Cache
}

// New creates a cache. ttl is the default lifetime of an entry and
// cleanupInterval how often expired entries are dropped from memory.
func New[V any](ttl, cleanupInterval time.Duration) *Cache[V] {
	return &Cache[V]{
		store: gocache.New(ttl, cleanupInterval),
	}
}

// Get returns the live entry for id.
func (c *Cache[V]) Get(id int) (V, bool) {
	var zero V
	v, ok := c.store.Get(key(id))
	if !ok {
		return zero, false
	}
	typed, ok := v.(V)
	if !ok {
		return zero, false
	}
	return typed, true
}

// Set stores v under id with the default TTL.
func (c *Cache[V]) Set(id int, v V) {
	c.store.Set(key(id), v, gocache.DefaultExpiration)
}

// SetWithTTL stores v under id with a custom TTL.
func (c *Cache[V]) SetWithTTL(id int, v V, ttl time.Duration) {
	c.store.Set(key(id), v, ttl)
}

// Delete drops the entry for id.
func (c *Cache[V]) Delete(id int) {
	c.store.Delete(key(id))
}

// Clear drops every entry.
func (c *Cache[V]) Clear() {
	c.store.Flush()
}

// ItemCount returns the number of entries, including expired ones not yet
// cleaned up.
func (c *Cache[V]) ItemCount() int {
	return c.store.ItemCount()
}

// Stats is a point-in-time view of a cache.
type Stats struct {
	ItemCount int `json:"item_count" yaml:"item_count"`
}

// GetStats returns current cache statistics.
func (c *Cache[V]) GetStats() Stats {
	return Stats{ItemCount: c.store.ItemCount()}
}

func key(id int) string {
	return strconv.Itoa(id)
}
