package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type pageKey string

type rowPage struct {
	Offset int
	Rows   [][]any
}

func newPageCache() *InMemoryCacheManager[pageKey, rowPage] {
	return NewInMemoryCacheManager[pageKey, rowPage]("pages", DefaultExpiration, DefaultCleanupInterval)
}

func TestInMemoryCacheManager_SetAndGet(t *testing.T) {
	cache := newPageCache()
	page := rowPage{Offset: 256, Rows: [][]any{{"a", 1}}}
	cache.Set(context.Background(), "items:256", page, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "items:256")
	require.True(t, ok)
	require.Equal(t, page, got)
	require.Equal(t, 1, cache.Len())
}

func TestInMemoryCacheManager_GetMissing(t *testing.T) {
	cache := newPageCache()

	got, ok := cache.Get(context.Background(), "items:0")
	require.False(t, ok)
	require.Zero(t, got)
}

func TestInMemoryCacheManager_GetWrongType(t *testing.T) {
	cache := newPageCache()
	cache.cache.Set("items:0", 123, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "items:0")
	require.False(t, ok)
	require.Zero(t, got)
}

func TestInMemoryCacheManager_Expiry(t *testing.T) {
	cache := newPageCache()
	cache.Set(context.Background(), "items:0", rowPage{}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)

	_, ok := cache.Get(context.Background(), "items:0")
	require.False(t, ok)
}

func TestInMemoryCacheManager_GetMultiple(t *testing.T) {
	cache := newPageCache()

	got, ok := cache.GetMultiple(context.Background(), nil)
	require.False(t, ok)
	require.Nil(t, got)

	got, ok = cache.GetMultiple(context.Background(), []pageKey{"items:0", "items:256"})
	require.False(t, ok, "all missing")
	require.Nil(t, got)

	cache.Set(context.Background(), "items:0", rowPage{Offset: 0}, DefaultExpiration)
	cache.cache.Set("items:512", "not a page", DefaultExpiration)

	got, ok = cache.GetMultiple(context.Background(), []pageKey{"items:0", "items:256", "items:512"})
	require.True(t, ok)
	require.Equal(t, map[pageKey]rowPage{"items:0": {Offset: 0}}, got)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := newPageCache()

	_, ok := cache.GetWithRefresh(context.Background(), "items:0", time.Hour)
	require.False(t, ok)

	cache.Set(context.Background(), "items:0", rowPage{Offset: 0}, time.Millisecond)
	_, ok = cache.GetWithRefresh(context.Background(), "items:0", time.Hour)
	require.True(t, ok)

	time.Sleep(5 * time.Millisecond)
	_, ok = cache.Get(context.Background(), "items:0")
	require.True(t, ok, "refresh extended the ttl")
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := newPageCache()
	ctx := context.Background()

	require.NoError(t, cache.Delete(ctx))

	cache.Set(ctx, "items:0", rowPage{}, DefaultExpiration)
	cache.Set(ctx, "items:256", rowPage{Offset: 256}, DefaultExpiration)
	require.NoError(t, cache.Delete(ctx, "items:0"))

	_, ok := cache.Get(ctx, "items:0")
	require.False(t, ok)
	_, ok = cache.Get(ctx, "items:256")
	require.True(t, ok)

	require.NoError(t, cache.Flush(ctx))
	require.Zero(t, cache.Len())
}
