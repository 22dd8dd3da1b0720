package vectorstore

import lru "github.com/hashicorp/golang-lru/v2"

// entryCache is a bounded LRU cache of frequently-accessed entries, keyed by
// entry id. Eviction is explicit and size-bounded, per the contract that
// forbids relying on a plain map's incidental insertion order.
type entryCache struct {
	lru *lru.Cache[string, EmbeddingEntry]
}

func newEntryCache(size int) *entryCache {
	if size <= 0 {
		size = 100
	}
	c, _ := lru.New[string, EmbeddingEntry](size)
	return &entryCache{lru: c}
}

func (c *entryCache) get(id string) (EmbeddingEntry, bool) {
	return c.lru.Get(id)
}

func (c *entryCache) put(entry EmbeddingEntry) {
	c.lru.Add(entry.ID, entry)
}

func (c *entryCache) invalidate(id string) {
	c.lru.Remove(id)
}

func (c *entryCache) flush() {
	c.lru.Purge()
}
