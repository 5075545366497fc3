// Package pointcache provides a small bounded cache for values computed at
// evaluation points.
package pointcache

import (
	"sync"

	"github.com/hashicorp/golang-lru/simplelru"
	"github.com/sirupsen/logrus"
)

// DefaultSize is the number of points kept when no size is given.
const DefaultSize = 100

// Key is a cache key with a hash and an equality test. Keys with equal hashes
// are told apart by Equal.
type Key[K any] interface {
	Hash() uint64
	Equal(K) bool
}

type entry[K Key[K], V any] struct {
	key   K
	value V
}

// Cache is a least recently used cache bounded by the number of distinct
// hashes it holds. It is safe for concurrent use.
type Cache[K Key[K], V any] struct {
	mu  sync.Mutex
	lru *simplelru.LRU
	log logrus.FieldLogger
}

// New returns a cache holding up to size hashes. A size of 0 returns a
// disabled cache that stores nothing.
func New[K Key[K], V any](size int, log logrus.FieldLogger) (*Cache[K, V], error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	c := &Cache[K, V]{log: log}
	if size == 0 {
		return c, nil
	}
	l, err := simplelru.NewLRU(size, func(key, value interface{}) {
		c.log.WithField("hash", key).Debugf("pointcache: evicted %d entries", len(value.([]entry[K, V])))
	})
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// Enabled reports whether the cache stores anything.
func (c *Cache[K, V]) Enabled() bool { return c.lru != nil }

// Get returns the value stored for key.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	var none V
	if c.lru == nil {
		return none, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	bucket, ok := c.lru.Get(key.Hash())
	if !ok {
		return none, false
	}
	for _, e := range bucket.([]entry[K, V]) {
		if e.key.Equal(key) {
			return e.value, true
		}
	}
	return none, false
}

// Add stores value for key unless an equal key is already present, and
// returns the value that is now cached. Concurrent callers adding the same
// key therefore all end up with the first stored value.
func (c *Cache[K, V]) Add(key K, value V) V {
	if c.lru == nil {
		return value
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	h := key.Hash()
	var bucket []entry[K, V]
	if b, ok := c.lru.Get(h); ok {
		bucket = b.([]entry[K, V])
		for _, e := range bucket {
			if e.key.Equal(key) {
				return e.value
			}
		}
	}
	bucket = append(bucket[:len(bucket):len(bucket)], entry[K, V]{key: key, value: value})
	c.lru.Add(h, bucket)
	return value
}

// GetOrCompute returns the cached value for key, calling compute on a miss.
// compute runs without the lock held, so two goroutines may both compute the
// value for a new key; only the first result is kept and returned to both.
func (c *Cache[K, V]) GetOrCompute(key K, compute func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := compute()
	if err != nil {
		return v, err
	}
	return c.Add(key, v), nil
}

// Len returns the number of hashes held.
func (c *Cache[K, V]) Len() int {
	if c.lru == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Purge drops every entry.
func (c *Cache[K, V]) Purge() {
	if c.lru == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
}
