// Package cache stores rendered cell output keyed by what produced it.
//
// A key combines the column index, the serialized cell value, the renderer
// identity and the interaction flags. An unchanged cell therefore maps to the
// same key on every frame and its content can be reapplied without invoking
// the renderer.
package cache

import (
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/zjrosen/vgrid/internal/log"
)

// DefaultCapacity is used when Options.Capacity is unset.
const DefaultCapacity = 10_000

// Flags is the interaction state that changes how a cell is presented.
type Flags struct {
	Selected bool
	Active   bool
	Editing  bool
}

func (f Flags) bits() byte {
	var b byte
	if f.Selected {
		b |= 1
	}
	if f.Active {
		b |= 2
	}
	if f.Editing {
		b |= 4
	}
	return '0' + b
}

// Key identifies one cache entry.
type Key string

// Entry is rendered output plus the markers the renderer added.
type Entry struct {
	Content string
	Markers []string
}

type item struct {
	entry   Entry
	expires time.Time // zero when no TTL
}

// Options configures a Cache.
type Options struct {
	Capacity int
	TTL      time.Duration    // zero disables expiry
	Stats    bool             // count hits and misses
	Clock    func() time.Time // nil uses time.Now
}

// Stats reports cache occupancy and effectiveness.
type Stats struct {
	Size      int
	Capacity  int
	Hits      uint64
	Misses    uint64
	Evictions uint64
	Enabled   bool
}

// HitRate returns the hit rate as a percentage (0-100).
// Returns 0 if no requests have been made.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// Cache is an LRU of rendered cell content.
type Cache struct {
	mu       sync.Mutex
	lru      *lru.Cache[Key, item]
	capacity int
	ttl      time.Duration
	stats    bool
	now      func() time.Time
	enabled  bool

	// explicit is set while entries are removed on purpose so the eviction
	// callback only counts capacity evictions.
	explicit bool

	hits      uint64
	misses    uint64
	evictions uint64

	serializer Serializer
}

// New creates an enabled cache.
func New(opts Options) (*Cache, error) {
	capacity := opts.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	c := &Cache{
		capacity: capacity,
		ttl:      opts.TTL,
		stats:    opts.Stats,
		now:      now,
		enabled:  true,
	}
	l, err := lru.NewWithEvict[Key, item](capacity, c.onEvict)
	if err != nil {
		return nil, err
	}
	c.lru = l
	return c, nil
}

// onEvict runs inside lru calls made while c.mu is held.
func (c *Cache) onEvict(_ Key, _ item) {
	if !c.explicit {
		c.evictions++
	}
}

// KeyFor derives the key for a cell.
func (c *Cache) KeyFor(col int, value any, rendererID string, flags Flags) Key {
	c.mu.Lock()
	serialized := c.serializer.Serialize(value)
	c.mu.Unlock()
	return MakeKey(col, serialized, rendererID, flags)
}

// MakeKey assembles a key from an already serialized value.
func MakeKey(col int, serialized, rendererID string, flags Flags) Key {
	var b strings.Builder
	b.Grow(len(serialized) + len(rendererID) + 16)
	b.WriteString(strconv.Itoa(col))
	b.WriteByte('|')
	b.WriteString(rendererID)
	b.WriteByte('|')
	b.WriteByte(flags.bits())
	b.WriteByte('|')
	b.WriteString(serialized)
	return Key(b.String())
}

// Get returns the entry for key. Expired entries are removed and reported as
// misses.
func (c *Cache) Get(key Key) (Entry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return Entry{}, false
	}
	it, ok := c.lru.Get(key)
	if ok && !it.expires.IsZero() && !c.now().Before(it.expires) {
		c.remove(key)
		ok = false
	}
	if c.stats {
		if ok {
			c.hits++
		} else {
			c.misses++
		}
	}
	if !ok {
		return Entry{}, false
	}
	return it.entry, true
}

// Put stores an entry, evicting the least recently used one at capacity.
func (c *Cache) Put(key Key, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.enabled {
		return
	}
	it := item{entry: Entry{Content: e.Content, Markers: append([]string(nil), e.Markers...)}}
	if c.ttl > 0 {
		it.expires = c.now().Add(c.ttl)
	}
	c.lru.Add(key, it)
}

// Invalidate removes specific keys.
func (c *Cache) Invalidate(keys ...Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.remove(k)
	}
}

// InvalidateColumn removes every entry produced for column col.
func (c *Cache) InvalidateColumn(col int) int {
	prefix := strconv.Itoa(col) + "|"
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, k := range c.lru.Keys() {
		if strings.HasPrefix(string(k), prefix) {
			c.remove(k)
			n++
		}
	}
	if n > 0 {
		log.Debug(log.CatCache, "invalidated column", "col", col, "entries", n)
	}
	return n
}

// Clear removes every entry and forgets surrogate identities.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.purge()
}

// Resize changes the capacity, evicting least recently used entries if the
// cache shrinks below its current size.
func (c *Cache) Resize(capacity int) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	evicted := c.lru.Resize(capacity)
	c.capacity = capacity
	if evicted > 0 {
		log.Debug(log.CatCache, "resize evicted entries", "capacity", capacity, "evicted", evicted)
	}
}

// SetEnabled turns the cache on or off. Disabling clears every entry and
// makes Get and Put no-ops.
func (c *Cache) SetEnabled(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.enabled == enabled {
		return
	}
	c.enabled = enabled
	if !enabled {
		c.purge()
	}
}

// Enabled reports whether the cache accepts lookups and writes.
func (c *Cache) Enabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enabled
}

// Stats returns a snapshot of cache statistics.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Size:      c.lru.Len(),
		Capacity:  c.capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		Enabled:   c.enabled,
	}
}

// ResetStats zeroes the counters.
func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hits, c.misses, c.evictions = 0, 0, 0
}

func (c *Cache) remove(k Key) {
	c.explicit = true
	c.lru.Remove(k)
	c.explicit = false
}

func (c *Cache) purge() {
	c.explicit = true
	c.lru.Purge()
	c.explicit = false
	c.serializer.Reset()
}
