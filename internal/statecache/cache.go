package statecache

import (
	"sync"

	"github.com/rootline/clusterwatch/internal/types"
)

// defaultCap bounds the cache so a misbehaving cluster cannot grow it
// without limit. Resource counts in practice sit far below this.
const defaultCap = 100000

// Cache holds the last-seen reduced summary per resource identity.
// It is advisory: losing it only affects noise suppression, never the
// correctness of checkpoints, so it is never persisted.
type Cache struct {
	mu      sync.RWMutex
	entries map[types.ResourceIdentity]types.Summary
	cap     int
}

func New() *Cache {
	return &Cache{
		entries: make(map[types.ResourceIdentity]types.Summary),
		cap:     defaultCap,
	}
}

func (c *Cache) Get(id types.ResourceIdentity) (types.Summary, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.entries[id]
	return s, ok
}

// Put replaces the cached summary for id. Replacement happens on every
// observation regardless of significance; only brand-new identities
// are refused once the defensive cap is reached.
func (c *Cache) Put(id types.ResourceIdentity, s types.Summary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[id]; !exists && len(c.entries) >= c.cap {
		return
	}
	c.entries[id] = s
}

func (c *Cache) Delete(id types.ResourceIdentity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
