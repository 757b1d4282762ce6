package cache

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Value caches a single immutable snapshot with a TTL. Concurrent misses
// share one load. Invalidate bumps a generation so a load that started
// before the invalidation never repopulates the cache with stale data.
type Value[T any] struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu        sync.RWMutex
	val       *T
	expiresAt time.Time
	gen       uint64

	group singleflight.Group
}

// defaultLoadTimeout bounds a shared load once it no longer follows any caller's context.
const defaultLoadTimeout = 10 * time.Second

// NewValue creates a cache with the given TTL. A TTL <= 0 means entries never expire
// on their own and are only dropped by Invalidate.
func NewValue[T any](ttl time.Duration) *Value[T] {
	return &Value[T]{ttl: ttl, loadTimeout: defaultLoadTimeout, now: time.Now}
}

// Get returns the cached value or calls load to fill it. The load is shared by
// every concurrent caller, so it runs on a context detached from ctx; a caller
// whose ctx ends stops waiting without failing the others.
func (v *Value[T]) Get(ctx context.Context, load func(ctx context.Context) (*T, error)) (*T, error) {
	v.mu.RLock()
	val, gen, fresh := v.val, v.gen, v.freshLocked()
	v.mu.RUnlock()
	if fresh {
		return val, nil
	}

	ch := v.group.DoChan(strconv.FormatUint(gen, 10), func() (interface{}, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), v.loadTimeout)
		defer cancel()

		loaded, err := load(lctx)
		if err != nil {
			return nil, err
		}
		v.mu.Lock()
		if v.gen == gen {
			v.val = loaded
			if v.ttl > 0 {
				v.expiresAt = v.now().Add(v.ttl)
			}
		}
		v.mu.Unlock()
		return loaded, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*T), nil
	}
}

// Set stores val directly, e.g. right after a write-through update.
func (v *Value[T]) Set(val *T) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.val = val
	if v.ttl > 0 {
		v.expiresAt = v.now().Add(v.ttl)
	}
}

// Invalidate drops the cached value.
func (v *Value[T]) Invalidate() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	v.val = nil
}

func (v *Value[T]) freshLocked() bool {
	if v.val == nil {
		return false
	}
	return v.ttl <= 0 || v.now().Before(v.expiresAt)
}
