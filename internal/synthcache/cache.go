// Package synthcache provides an in-memory, size-bounded LRU cache for
// synthesized audio, keyed on the exact (engine, segment text, target
// spec) tuple that produced it. It wraps an nanotts.Engine so repeated
// runs over the same markdown — common when a caller re-streams a
// document after an edit — skip resynthesis of unchanged segments.
package synthcache

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"

	"github.com/nanospeak/nanospeak/pkg/nanotts"
)

// DefaultCapacity bounds the cache at 64MB of cached audio, roughly what
// a long markdown document's worth of segments costs at 16kHz mono PCM.
const DefaultCapacity = 64 * 1024 * 1024

type entry struct {
	key  string
	data nanotts.AudioChunk
	size int64
}

// Cache is a concurrency-safe LRU cache from cache key to AudioChunk.
type Cache struct {
	mu       sync.Mutex
	capacity int64
	size     int64
	items    map[string]*list.Element
	order    *list.List

	hits   int64
	misses int64
}

// New builds a Cache bounded at capacity bytes of cached audio data.
func New(capacity int64) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		capacity: capacity,
		items:    make(map[string]*list.Element),
		order:    list.New(),
	}
}

// Get looks up a previously cached chunk.
func (c *Cache) Get(key string) (nanotts.AudioChunk, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return nanotts.AudioChunk{}, false
	}
	c.order.MoveToFront(elem)
	c.hits++
	return elem.Value.(*entry).data, true
}

// Put stores chunk under key, evicting least-recently-used entries until
// it fits.
func (c *Cache) Put(key string, chunk nanotts.AudioChunk) {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(chunk.Data))
	if size > c.capacity {
		return
	}

	if elem, ok := c.items[key]; ok {
		c.order.Remove(elem)
		delete(c.items, key)
		c.size -= elem.Value.(*entry).size
	}
	for c.size+size > c.capacity && c.order.Len() > 0 {
		c.evictOldest()
	}
	e := &entry{key: key, data: chunk, size: size}
	c.items[key] = c.order.PushFront(e)
	c.size += size
}

func (c *Cache) evictOldest() {
	oldest := c.order.Back()
	if oldest == nil {
		return
	}
	c.order.Remove(oldest)
	e := oldest.Value.(*entry)
	delete(c.items, e.key)
	c.size -= e.size
}

// Stats reports cumulative hit and miss counts.
func (c *Cache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// EngineKey derives a stable cache key for one synthesis request. Hashing
// keeps the key size independent of the segment text's length.
func EngineKey(engineName, text string, target nanotts.AudioSpec) string {
	h := sha256.New()
	h.Write([]byte(engineName))
	h.Write([]byte{0})
	h.Write([]byte(text))
	h.Write([]byte{0})
	h.Write([]byte(target.Codec))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(target.SampleRate) + "/" + strconv.Itoa(target.Channels) + "/" + strconv.Itoa(target.SampleWidth)))
	return hex.EncodeToString(h.Sum(nil))
}

// CachedEngine decorates an nanotts.Engine, serving repeated requests for
// the same (name, text, target) from cache instead of resynthesizing.
type CachedEngine struct {
	name   string
	engine nanotts.Engine
	cache  *Cache
}

// Wrap returns an Engine backed by cache, falling through to inner on a
// miss and populating cache with the result.
func Wrap(name string, inner nanotts.Engine, cache *Cache) *CachedEngine {
	return &CachedEngine{name: name, engine: inner, cache: cache}
}

func (c *CachedEngine) Synth(ctx context.Context, text string, target nanotts.AudioSpec) (nanotts.AudioChunk, error) {
	key := EngineKey(c.name, text, target)
	if chunk, ok := c.cache.Get(key); ok {
		return chunk, nil
	}
	chunk, err := c.engine.Synth(ctx, text, target)
	if err != nil {
		return nanotts.AudioChunk{}, err
	}
	c.cache.Put(key, chunk)
	return chunk, nil
}
