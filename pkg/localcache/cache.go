package localcache

import (
	"container/list"
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/dmitrymomot/featurekit/pkg/featurestore"
)

// ErrInvalidCapacity is returned when the cache is created with a
// non-positive capacity.
var ErrInvalidCapacity = errors.New("local cache capacity must be positive")

type entry struct {
	key       string
	payload   []byte
	expiresAt time.Time // zero means no expiry
}

// Cache is a thread-safe LRU cache of feature payloads with per-entry TTL.
// It implements featurestore.Cache.
type Cache struct {
	capacity int

	mu       sync.Mutex
	items    map[string]*list.Element
	eviction *list.List
}

// New creates a local cache holding at most capacity entries.
func New(capacity int) (*Cache, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
	}, nil
}

// Get returns the payload for a key and marks it as recently used. Expired
// entries are removed on access and reported as a miss.
func (c *Cache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		return nil, featurestore.ErrCacheMiss
	}
	e := elem.Value.(*entry)
	if e.expired(time.Now()) {
		c.remove(elem)
		return nil, featurestore.ErrCacheMiss
	}
	c.eviction.MoveToFront(elem)
	return slices.Clone(e.payload), nil
}

// Set stores a payload, evicting the least recently used entry when the
// cache is full. Zero TTL means no expiry.
func (c *Cache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry)
		e.payload = slices.Clone(value)
		e.expiresAt = expiresAt
		c.eviction.MoveToFront(elem)
		return nil
	}

	elem := c.eviction.PushFront(&entry{
		key:       key,
		payload:   slices.Clone(value),
		expiresAt: expiresAt,
	})
	c.items[key] = elem

	for c.eviction.Len() > c.capacity {
		c.remove(c.eviction.Back())
	}
	return nil
}

// MGet returns the present, unexpired keys only; the rest are omitted.
func (c *Cache) MGet(_ context.Context, keys []string) (map[string][]byte, error) {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		elem, ok := c.items[key]
		if !ok {
			continue
		}
		e := elem.Value.(*entry)
		if e.expired(now) {
			c.remove(elem)
			continue
		}
		c.eviction.MoveToFront(elem)
		result[key] = slices.Clone(e.payload)
	}
	return result, nil
}

// Delete removes a key. Deleting an absent key is a no-op.
func (c *Cache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		c.remove(elem)
	}
	return nil
}

// Ping always succeeds; the cache lives in-process.
func (c *Cache) Ping(_ context.Context) error {
	return nil
}

// Len reports the number of entries currently held, including entries whose
// TTL passed but which have not been touched since.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.eviction.Len()
}

func (c *Cache) remove(elem *list.Element) {
	e := c.eviction.Remove(elem).(*entry)
	delete(c.items, e.key)
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}
