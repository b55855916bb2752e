package grpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type FetchFunc[T any] func(ctx context.Context) (T, error)

const (
	defaultFetchTimeout = 15 * time.Second
	defaultSetTimeout   = 5 * time.Second
)

// cacheEntry wraps a cached value with the time it was stored so hits can
// decide whether the entry is due for a refresh.
type cacheEntry[T any] struct {
	Value    T         `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// readThrough serves values from the cache, loads misses once per key and
// refreshes entries in the background after half their TTL has elapsed.
type readThrough struct {
	cache  Cacher
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	sf singleflight.Group
	// wg tracks background cache writes and refreshes.
	wg sync.WaitGroup
}

func newReadThrough(cache Cacher, ttl time.Duration, logger *zap.Logger) *readThrough {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &readThrough{cache: cache, ttl: ttl, logger: logger, now: time.Now}
}

// addTTLJitter adds up to ±15s random jitter to TTL to avoid mass expiration.
func addTTLJitter(ttl time.Duration) time.Duration {
	if ttl <= 30*time.Second {
		return ttl
	}
	jitter := time.Duration(rand.Intn(30)-15) * time.Second
	return ttl + jitter
}

func (rt *readThrough) dueForRefresh(storedAt time.Time) bool {
	return rt.now().Sub(storedAt) > rt.ttl/2
}

func (rt *readThrough) store(ctx context.Context, key string, value any) {
	ttl := addTTLJitter(rt.ttl)
	if err := rt.cache.Set(ctx, key, value, ttl); err != nil {
		rt.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return
	}
	rt.logger.Debug("cache populated", zap.String("key", key), zap.Duration("ttl", ttl))
}

// wait blocks until background cache work has finished.
func (rt *readThrough) wait() {
	rt.wg.Wait()
}

func refreshInBackground[T any](rt *readThrough, key string, fn FetchFunc[T]) {
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()

		_, _, _ = rt.sf.Do(key+":refresh", func() (any, error) {
			ctx, cancel := context.WithTimeout(context.Background(), defaultFetchTimeout)
			defer cancel()

			value, err := fn(ctx)
			if err != nil {
				rt.logger.Warn("background refresh failed", zap.String("key", key), zap.Error(err))
				return nil, err
			}

			setCtx, cancelSet := context.WithTimeout(context.Background(), defaultSetTimeout)
			defer cancelSet()
			rt.store(setCtx, key, cacheEntry[T]{Value: value, StoredAt: rt.now()})
			return value, nil
		})
	}()
}

func loadAndStore[T any](ctx context.Context, rt *readThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	value, err := fn(ctx)
	if err != nil {
		return zero, err
	}

	entry := cacheEntry[T]{Value: value, StoredAt: rt.now()}
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		setCtx, cancel := context.WithTimeout(context.Background(), defaultSetTimeout)
		defer cancel()
		rt.store(setCtx, key, entry)
	}()

	return value, nil
}

// FindAndCache returns the cached value for key or loads it through fn.
// Concurrent misses on one key share a single load. Cache errors are treated as misses.
func FindAndCache[T any](ctx context.Context, rt *readThrough, key string, fn FetchFunc[T]) (T, error) {
	var zero T

	var cached cacheEntry[T]
	err := rt.cache.Get(ctx, key, &cached)
	switch {
	case err == nil:
		rt.logger.Debug("cache hit", zap.String("key", key))
		if rt.dueForRefresh(cached.StoredAt) {
			refreshInBackground(rt, key, fn)
		}
		return cached.Value, nil

	case errors.Is(err, redis.Nil):
		rt.logger.Debug("cache miss", zap.String("key", key))

	default:
		rt.logger.Warn("cache get error (treating as miss)", zap.String("key", key), zap.Error(err))
	}

	v, err, shared := rt.sf.Do(key, func() (any, error) {
		return loadAndStore(ctx, rt, key, fn)
	})
	if err != nil {
		return zero, err
	}

	value, ok := v.(T)
	if !ok {
		rt.logger.Error("singleflight type mismatch", zap.String("key", key))
		return zero, fmt.Errorf("type mismatch for key %q", key)
	}

	if shared {
		rt.logger.Debug("singleflight shared result", zap.String("key", key))
	}

	return value, nil
}
