// Package cache provides an in-memory TTL cache for query responses keyed by
// a fingerprint of the normalized query and its scope.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/hyperjump/toiawase/internal/models"
	"github.com/hyperjump/toiawase/pkg/utils"
)

// Fingerprint derives a stable cache key from the normalized query text and
// the scope parameters that change what a response contains. Two requests
// that differ only in whitespace or casing share an entry; a different result
// limit or source set does not.
func Fingerprint(query string, maxResults int, sources []string) string {
	norm := strings.ToLower(utils.NormalizeText(query))
	sorted := make([]string, len(sources))
	copy(sorted, sources)
	sort.Strings(sorted)
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%s", norm, maxResults, strings.Join(sorted, ","))
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	response  *models.QueryResponse
	expiresAt time.Time
}

// Cache stores completed query responses for a fixed TTL. All methods are
// safe for concurrent use; Get never returns a partially written entry
// because responses are stored complete and treated as immutable.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	stop    chan struct{}
	once    sync.Once
}

// New creates a Cache with the given TTL and starts a background sweep every
// cleanupInterval. Stop must be called to release the sweeper.
func New(ttl, cleanupInterval time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	if cleanupInterval > 0 {
		go c.sweep(cleanupInterval)
	}
	return c
}

// Get returns the cached response for key if present and unexpired.
func (c *Cache) Get(key string) (*models.QueryResponse, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || time.Now().After(e.expiresAt) {
		return nil, false
	}
	return e.response, true
}

// Put stores a response under key. Storing the same key again is idempotent
// apart from refreshing the TTL.
func (c *Cache) Put(key string, resp *models.QueryResponse) {
	c.mu.Lock()
	c.entries[key] = entry{response: resp, expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

// Invalidate removes a single entry.
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear removes all entries. Used when the document index changes, since any
// cached answer may now be stale.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.entries = make(map[string]entry)
	c.mu.Unlock()
}

// Len returns the number of entries including any not yet swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Cleanup removes expired entries. It runs on the sweep interval and may be
// called directly; calling it repeatedly is harmless.
func (c *Cache) Cleanup() {
	now := time.Now()
	c.mu.Lock()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

// Stop terminates the background sweeper.
func (c *Cache) Stop() {
	c.once.Do(func() { close(c.stop) })
}

func (c *Cache) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Cleanup()
		case <-c.stop:
			return
		}
	}
}
