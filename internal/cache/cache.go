// Package cache implements the bounded response cache: a sharded LRU keyed
// by request fingerprint. The bound is fixed at construction; when a shard
// overflows its least-recently-used entry is evicted. An unbounded map
// variant was considered and rejected as a latent memory leak.
package cache

import (
	"hash/fnv"
	"sync"
	"sync/atomic"

	"github.com/jeffersonwarrior/httpbridge/internal/model"
)

const (
	numShards = 16

	// DefaultCapacity bounds the whole cache: a power of two so the
	// capacity splits evenly across shards.
	DefaultCapacity = 512
)

// Layer is an optional slower storage tier consulted on memory misses and
// written through on stores. Implemented by the sqlite-backed store.
type Layer interface {
	Get(key string) (*model.EnhancedResponse, bool)
	Put(key string, resp *model.EnhancedResponse)
}

type shard struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   lruList
	cap     int
}

type entry struct {
	resp *model.EnhancedResponse
	node *lruNode
}

// Cache is a fingerprint-keyed response cache with per-shard locking.
type Cache struct {
	shards [numShards]*shard
	layer  Layer

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// Option configures a Cache.
type Option func(*Cache)

// WithLayer attaches a persistent second tier. Memory misses fall through to
// the layer and promote on hit; stores write through.
func WithLayer(layer Layer) Option {
	return func(c *Cache) { c.layer = layer }
}

// New creates a cache bounded at capacity entries. A non-positive capacity
// falls back to DefaultCapacity.
func New(capacity int, opts ...Option) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	perShard := capacity / numShards
	if perShard < 1 {
		perShard = 1
	}

	c := &Cache{}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[string]*entry),
			cap:     perShard,
		}
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return c.shards[h.Sum32()%numShards]
}

// Lookup returns a cloned snapshot of the cached response for key.
// Non-blocking beyond the single shard lock; never touches the network.
func (c *Cache) Lookup(key string) (*model.EnhancedResponse, bool) {
	s := c.shardFor(key)

	s.mu.Lock()
	if e, ok := s.entries[key]; ok {
		s.order.moveToFront(e.node)
		resp := e.resp
		s.mu.Unlock()
		c.hits.Add(1)
		return resp.Clone(), true
	}
	s.mu.Unlock()

	if c.layer != nil {
		if resp, ok := c.layer.Get(key); ok {
			c.hits.Add(1)
			c.promote(s, key, resp)
			return resp.Clone(), true
		}
	}

	c.misses.Add(1)
	return nil, false
}

// Store inserts or overwrites the response snapshot for key, evicting the
// shard's least-recently-used entry on overflow. Callers only invoke this
// for successful GET responses; the cache itself does not re-check that.
func (c *Cache) Store(key string, resp *model.EnhancedResponse) {
	s := c.shardFor(key)
	c.put(s, key, resp)

	if c.layer != nil {
		c.layer.Put(key, resp)
	}
}

// promote inserts a layer hit into the memory tier without writing back.
func (c *Cache) promote(s *shard, key string, resp *model.EnhancedResponse) {
	c.put(s, key, resp)
}

func (c *Cache) put(s *shard, key string, resp *model.EnhancedResponse) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok {
		e.resp = resp
		s.order.moveToFront(e.node)
		return
	}

	if len(s.entries) >= s.cap {
		if victim := s.order.back(); victim != nil {
			s.order.remove(victim)
			delete(s.entries, victim.key)
			c.evictions.Add(1)
		}
	}

	s.entries[key] = &entry{resp: resp, node: s.order.pushFront(key)}
}

// Len returns the current number of cached entries across all shards.
func (c *Cache) Len() int {
	n := 0
	for _, s := range c.shards {
		s.mu.Lock()
		n += len(s.entries)
		s.mu.Unlock()
	}
	return n
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Entries   int
}

// Stats returns current cache counters.
func (c *Cache) Stats() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
		Entries:   c.Len(),
	}
}
