// Package cache provides thread-safe generic caching and the rendered-HTML cache.
package cache

import "sync"

type Cache[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func NewCache[K comparable, V any]() *Cache[K, V] {
	return &Cache[K, V]{
		items: make(map[K]V),
	}
}

func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	val, ok := c.items[key]
	return val, ok
}

func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[K]V)
}

func (c *Cache[K, V]) SetTo(items map[K]V) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = items
}

func (c *Cache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// Items returns a shallow copy of the cached map.
func (c *Cache[K, V]) Items() map[K]V {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[K]V, len(c.items))
	for k, v := range c.items {
		out[k] = v
	}
	return out
}

var renderedHTMLCache = NewCache[string, []byte]()

// GetRenderedHTML returns previously rendered HTML for a content hash.
func GetRenderedHTML(contentHash string) ([]byte, bool) {
	return renderedHTMLCache.Get(contentHash)
}

func SetRenderedHTML(contentHash string, html []byte) {
	renderedHTMLCache.Set(contentHash, html)
}

func ClearRenderedHTMLCache() {
	renderedHTMLCache.Clear()
}
