package geocode

import (
	"crypto/sha256"
	"fmt"
	"sync"

	"github.com/sam0per/belgian-brewery/internal/model"
	"github.com/sam0per/belgian-brewery/internal/normalize"
)

// cacheKey returns SHA-256 hex of the normalized address text.
func cacheKey(addr model.Address) string {
	h := sha256.Sum256([]byte(normalize.Key(addr.Text())))
	return fmt.Sprintf("%x", h)
}

// Cache is an in-run geocode cache keyed by normalized address text.
// It is safe for concurrent read/insert and stores negative results so
// repeated misses don't re-hit the external resolver. One cache is
// scoped to one pipeline run; it is passed in explicitly, never held as
// package state.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Result
}

// NewCache creates an empty in-run cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[string]*Result)}
}

// Get returns the cached result for an address and whether it was
// present. A present nil-tier result is a cached miss.
func (c *Cache) Get(addr model.Address) (*Result, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.entries[cacheKey(addr)]
	return r, ok
}

// Put stores a result (match or negative) for an address.
func (c *Cache) Put(addr model.Address, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(addr)] = r
}

// Len reports the number of cached addresses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
