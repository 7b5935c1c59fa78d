package embedding

import (
	"container/list"
	"context"
	"sync"
)

// Cache decorates an Embedder with an LRU cache keyed by text. Repeated
// queries and re-ingested chunks skip the remote call entirely.
type Cache struct {
	inner    Embedder
	capacity int
	mu       sync.Mutex
	entries  map[string]*list.Element
	lru      *list.List
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewCache wraps inner with an LRU cache of the given capacity
// (default 1024).
func NewCache(inner Embedder, capacity int) *Cache {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Cache{
		inner:    inner,
		capacity: capacity,
		entries:  make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// EmbedQuery returns the cached embedding for text when present, embedding
// and caching it otherwise.
func (c *Cache) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if emb, ok := c.get(text); ok {
		return emb, nil
	}
	emb, err := c.inner.EmbedQuery(ctx, text)
	if err != nil {
		return nil, err
	}
	c.set(text, emb)
	return emb, nil
}

// EmbedDocuments embeds only the texts missing from the cache, forwarding
// them to the inner embedder in one batch, and reassembles results in
// input order.
func (c *Cache) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int
	for i, text := range texts {
		if emb, ok := c.get(text); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}
	fresh, err := c.inner.EmbedDocuments(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, emb := range fresh {
		c.set(missing[j], emb)
		out[missingIdx[j]] = emb
	}
	return out, nil
}

// Dimensions returns the inner embedder's dimensionality.
func (c *Cache) Dimensions() int { return c.inner.Dimensions() }

// Close closes the inner embedder.
func (c *Cache) Close() error { return c.inner.Close() }

// Len returns the number of cached entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

func (c *Cache) get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

func (c *Cache) set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.entries[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}
	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.entries[key] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.entries, oldest.Value.(*cacheEntry).key)
		}
	}
}
