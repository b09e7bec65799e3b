package cache

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type address struct {
	City string
	Zip  int
}

type person struct {
	Name    string
	Tags    []string
	Address *address
	meta    map[string]int
}

type node struct {
	Name string
	Next *node
}

func newCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	c, err := New(opts)
	require.NoError(t, err)
	return c
}

func TestSerialize_Primitives(t *testing.T) {
	var s Serializer
	require.Equal(t, `string:"abc"`, s.Serialize("abc"))
	require.Equal(t, "int:3", s.Serialize(3))
	require.Equal(t, "float64:1.5", s.Serialize(1.5))
	require.Equal(t, "bool:true", s.Serialize(true))
	require.Equal(t, "nil", s.Serialize(nil))
	require.NotEqual(t, s.Serialize(3), s.Serialize("3"), "type participates in the key")
	require.NotEqual(t, s.Serialize(int64(3)), s.Serialize(3))

	when := time.UnixMilli(1_700_000_000_123)
	require.Equal(t, "date:1700000000123", s.Serialize(when))
	require.Equal(t, s.Serialize(when), s.Serialize(when.In(time.FixedZone("x", 3600))), "dates compare by instant")
}

func TestSerialize_StructuralEquality(t *testing.T) {
	var s Serializer
	a := &person{Name: "ada", Tags: []string{"x", "y"}, Address: &address{"London", 1}, meta: map[string]int{"b": 2, "a": 1}}
	b := &person{Name: "ada", Tags: []string{"x", "y"}, Address: &address{"London", 1}, meta: map[string]int{"a": 1, "b": 2}}
	require.Equal(t, s.Serialize(a), s.Serialize(b), "distinct objects with equal content share a key")

	b.Address.Zip = 2
	require.NotEqual(t, s.Serialize(a), s.Serialize(b), "mutating a nested field changes the key")

	b.Address.Zip = 1
	b.meta["c"] = 3
	require.NotEqual(t, s.Serialize(a), s.Serialize(b), "unexported fields participate")
}

func TestSerialize_SharedReferenceIsNotACycle(t *testing.T) {
	var s Serializer
	shared := &address{City: "Oslo"}
	v := []*address{shared, shared}
	require.NotContains(t, s.Serialize(v), "ref:")
}

func TestSerialize_CyclesUseIdentity(t *testing.T) {
	var s Serializer
	a := &node{Name: "loop"}
	a.Next = a
	b := &node{Name: "loop"}
	b.Next = b

	ka := s.Serialize(a)
	kb := s.Serialize(b)
	require.True(t, strings.HasPrefix(ka, "ref:"))
	require.Equal(t, ka, s.Serialize(a), "stable across calls")
	require.NotEqual(t, ka, kb, "structurally equal cycles are identity-distinct")

	m := map[string]any{}
	m["self"] = m
	require.Equal(t, s.Serialize(m), s.Serialize(m))
	require.True(t, strings.HasPrefix(s.Serialize(m), "ref:"))
}

func TestSerialize_LongValuesAreDigested(t *testing.T) {
	var s Serializer
	long := strings.Repeat("x", 2048)
	key := s.Serialize(long)
	require.True(t, strings.HasPrefix(key, "xxh:"))
	require.Less(t, len(key), 64)
	require.Equal(t, key, s.Serialize(strings.Repeat("x", 2048)))
	require.NotEqual(t, key, s.Serialize(strings.Repeat("x", 2047)+"y"))
}

func TestKeyFor_Components(t *testing.T) {
	c := newCache(t, Options{})
	base := c.KeyFor(1, "v", "text", Flags{})
	require.Equal(t, base, c.KeyFor(1, "v", "text", Flags{}))
	require.NotEqual(t, base, c.KeyFor(2, "v", "text", Flags{}))
	require.NotEqual(t, base, c.KeyFor(1, "w", "text", Flags{}))
	require.NotEqual(t, base, c.KeyFor(1, "v", "wrap", Flags{}))
	require.NotEqual(t, base, c.KeyFor(1, "v", "text", Flags{Selected: true}))
	require.NotEqual(t, c.KeyFor(1, "v", "text", Flags{Active: true}), c.KeyFor(1, "v", "text", Flags{Editing: true}))
}

func TestCache_GetPutAndStats(t *testing.T) {
	c := newCache(t, Options{Capacity: 2, Stats: true})

	_, ok := c.Get("a")
	require.False(t, ok)

	markers := []string{"num-negative"}
	c.Put("a", Entry{Content: "A", Markers: markers})
	markers[0] = "mutated"

	e, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, Entry{Content: "A", Markers: []string{"num-negative"}}, e, "entries do not alias caller slices")

	c.Put("b", Entry{Content: "B"})
	c.Get("a") // a becomes most recently used
	c.Put("c", Entry{Content: "C"})

	_, ok = c.Get("b")
	require.False(t, ok, "least recently used entry is evicted")

	stats := c.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, 2, stats.Capacity)
	require.Equal(t, uint64(2), stats.Hits)
	require.Equal(t, uint64(2), stats.Misses)
	require.Equal(t, uint64(1), stats.Evictions)
	require.InDelta(t, 50.0, stats.HitRate(), 0.001)
}

func TestCache_StatsDisabled(t *testing.T) {
	c := newCache(t, Options{Capacity: 4})
	c.Put("a", Entry{Content: "A"})
	c.Get("a")
	c.Get("b")
	require.Zero(t, c.Stats().Hits)
	require.Zero(t, c.Stats().Misses)
}

func TestCache_TTL(t *testing.T) {
	now := time.Unix(100, 0)
	c := newCache(t, Options{Capacity: 4, TTL: time.Second, Stats: true, Clock: func() time.Time { return now }})

	c.Put("a", Entry{Content: "A"})
	_, ok := c.Get("a")
	require.True(t, ok)

	now = now.Add(2 * time.Second)
	_, ok = c.Get("a")
	require.False(t, ok, "expired entries miss")
	require.Zero(t, c.Stats().Size, "expired entries are removed")
	require.Zero(t, c.Stats().Evictions, "expiry is not a capacity eviction")
}

func TestCache_Resize(t *testing.T) {
	c := newCache(t, Options{Capacity: 4, Stats: true})
	for _, k := range []Key{"a", "b", "c", "d"} {
		c.Put(k, Entry{Content: string(k)})
	}
	c.Resize(2)

	stats := c.Stats()
	require.Equal(t, 2, stats.Size)
	require.Equal(t, 2, stats.Capacity)
	require.Equal(t, uint64(2), stats.Evictions)
	_, ok := c.Get("d")
	require.True(t, ok)
	_, ok = c.Get("a")
	require.False(t, ok)
}

func TestCache_SetEnabled(t *testing.T) {
	c := newCache(t, Options{Capacity: 4})
	c.Put("a", Entry{Content: "A"})

	c.SetEnabled(false)
	require.False(t, c.Enabled())
	require.Zero(t, c.Stats().Size, "disabling clears entries")

	c.Put("b", Entry{Content: "B"})
	_, ok := c.Get("b")
	require.False(t, ok, "writes are ignored while disabled")

	c.SetEnabled(true)
	c.Put("b", Entry{Content: "B"})
	_, ok = c.Get("b")
	require.True(t, ok)
}

func TestCache_Invalidate(t *testing.T) {
	c := newCache(t, Options{Capacity: 16, Stats: true})
	k10 := c.KeyFor(1, "x", "text", Flags{})
	k11 := c.KeyFor(1, "y", "text", Flags{})
	k2 := c.KeyFor(2, "x", "text", Flags{})
	k12 := c.KeyFor(12, "x", "text", Flags{})
	for _, k := range []Key{k10, k11, k2, k12} {
		c.Put(k, Entry{Content: "c"})
	}

	require.Equal(t, 2, c.InvalidateColumn(1), "column 12 is not column 1")
	_, ok := c.Get(k12)
	require.True(t, ok)

	c.Invalidate(k2)
	_, ok = c.Get(k2)
	require.False(t, ok)
	require.Zero(t, c.Stats().Evictions, "explicit removal is not an eviction")

	c.Clear()
	require.Zero(t, c.Stats().Size)
}
