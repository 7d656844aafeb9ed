package cache

import (
	"context"
	"fmt"
)

// Typed gives type-safe access to one key whose fetcher returns T.
type Typed[T any] struct {
	cache *Cache
	key   string
}

// NewTyped binds key on c to the value type T.
func NewTyped[T any](c *Cache, key string) Typed[T] {
	return Typed[T]{cache: c, key: key}
}

// Key returns the bound cache key.
func (t Typed[T]) Key() string { return t.key }

// Read is Cache.Read with the data converted to T. ok is false while no
// data of type T is held.
func (t Typed[T]) Read(opts ...ReadOption) (value T, e Entry, ok bool) {
	e = t.cache.Read(t.key, opts...)
	value, ok = Value[T](e)
	return value, e, ok
}

// Await is Cache.Await with the data converted to T.
func (t Typed[T]) Await(ctx context.Context) (T, Entry, error) {
	e, err := t.cache.Await(ctx, t.key)
	var zero T
	if err != nil {
		if v, ok := Value[T](e); ok {
			return v, e, err
		}
		return zero, e, err
	}
	v, ok := Value[T](e)
	if !ok {
		return zero, e, fmt.Errorf("cache %s: unexpected data type %T", t.key, e.Data)
	}
	return v, e, nil
}

// Subscribe is Cache.Subscribe.
func (t Typed[T]) Subscribe(fn func(Entry)) (cancel func()) {
	return t.cache.Subscribe(t.key, fn)
}

// Invalidate is Cache.Invalidate.
func (t Typed[T]) Invalidate() { t.cache.Invalidate(t.key) }
