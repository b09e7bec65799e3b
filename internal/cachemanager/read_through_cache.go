package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache fronts a slow loader, such as a SQLite page query, with a
// CacheManager. A miss calls the loader with the request and stores the
// result under the key; failed loads are not stored. With bypass set every
// call goes to the loader.
type ReadThroughCache[K ~string, V any, I any] struct {
	store  CacheManager[K, V]
	load   func(ctx context.Context, req I) (V, error)
	bypass bool
}

func NewReadThroughCache[K ~string, V any, I any](
	store CacheManager[K, V],
	load func(ctx context.Context, req I) (V, error),
	bypass bool,
) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{store: store, load: load, bypass: bypass}
}

// Get returns the cached value for key, loading it from req on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, req I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.load(ctx, req)
	}
	if v, ok := r.store.Get(ctx, key); ok {
		return v, nil
	}
	return r.fill(ctx, key, req, ttl)
}

// GetWithRefresh is Get that also extends the ttl of a hit.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, req I, ttl time.Duration) (V, error) {
	if r.bypass {
		return r.load(ctx, req)
	}
	if v, ok := r.store.GetWithRefresh(ctx, key, ttl); ok {
		return v, nil
	}
	return r.fill(ctx, key, req, ttl)
}

// Invalidate drops cached values so the next Get reloads them.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context, keys ...K) error {
	return r.store.Delete(ctx, keys...)
}

func (r *ReadThroughCache[K, V, I]) fill(ctx context.Context, key K, req I, ttl time.Duration) (V, error) {
	v, err := r.load(ctx, req)
	if err != nil {
		return v, err
	}
	r.store.Set(ctx, key, v, ttl)
	return v, nil
}
