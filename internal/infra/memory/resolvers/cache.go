// Package resolvers provides a small recency cache in front of a
// ResolverSource. Building a per-locale vote resolver is expensive and the
// same handful of locales are polled repeatedly, so a strict LRU of modest
// capacity captures nearly all of the reuse.
package resolvers

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/localeforge/vetqueue/internal/domain/vetting"
)

// DefaultCapacity bounds the cache. Resolvers hold full per-locale vote
// state, so the cap stays small.
const DefaultCapacity = 8

type cacheItem struct {
	locale   vetting.Locale
	resolver vetting.VoteResolver
}

// Cache is a strict LRU over an underlying ResolverSource. Every hit moves
// the entry to the front; inserting past capacity evicts the back.
type Cache struct {
	source   vetting.ResolverSource
	capacity int

	mu    sync.Mutex
	order *list.List
	index map[vetting.Locale]*list.Element

	hits   int64
	misses int64
}

var _ vetting.ResolverSource = (*Cache)(nil)

// New creates a Cache with the given capacity; zero or negative means
// DefaultCapacity.
func New(source vetting.ResolverSource, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		source:   source,
		capacity: capacity,
		order:    list.New(),
		index:    make(map[vetting.Locale]*list.Element, capacity),
	}
}

// ResolverForLocale returns the cached resolver for a locale, building and
// caching one on miss.
func (c *Cache) ResolverForLocale(ctx context.Context, locale vetting.Locale) (vetting.VoteResolver, error) {
	c.mu.Lock()
	if elem, ok := c.index[locale]; ok {
		c.order.MoveToFront(elem)
		c.hits++
		r := elem.Value.(*cacheItem).resolver
		c.mu.Unlock()
		return r, nil
	}
	c.misses++
	c.mu.Unlock()

	// Build outside the lock; resolver construction can be slow. A racing
	// miss for the same locale builds twice and the later insert wins,
	// which is acceptable for a read-only handle.
	resolver, err := c.source.ResolverForLocale(ctx, locale)
	if err != nil {
		return nil, fmt.Errorf("building resolver for %q: %w", locale, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.index[locale]; ok {
		elem.Value.(*cacheItem).resolver = resolver
		c.order.MoveToFront(elem)
		return resolver, nil
	}
	c.index[locale] = c.order.PushFront(&cacheItem{locale: locale, resolver: resolver})
	if c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.index, oldest.Value.(*cacheItem).locale)
	}
	return resolver, nil
}

// Len returns the number of cached resolvers.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

// Stats returns hit and miss counts since creation.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
