// Package blob stores JSON documents by namespace ("store") and key.
//
// Two backends exist: Redis, used on the hosting platform, and a local
// data directory used in development. Both are last-writer-wins with no
// transactions. Read failures are logged and reported as absent, so
// callers must treat "not found" as a normal state.
package blob

import (
	"context"
	"errors"
	"sort"
)

// ErrInvalidKey is returned for empty store names or keys.
var ErrInvalidKey = errors.New("blob: store and key must be non-empty")

// Store is the document store contract shared by every backend.
type Store interface {
	// Get decodes the document into out and reports whether it was found.
	// Any read or decode failure is logged and reported as not found.
	Get(ctx context.Context, store, key string, out any) bool
	Set(ctx context.Context, store, key string, v any) error
	Delete(ctx context.Context, store, key string) error
	Keys(ctx context.Context, store string) ([]string, error)
	// Backend names the implementation ("redis" or "filesystem").
	Backend() string
}

// Collection is a typed view over one store namespace.
type Collection[T any] struct {
	store Store
	name  string
}

func NewCollection[T any](s Store, name string) *Collection[T] {
	return &Collection[T]{store: s, name: name}
}

func (c *Collection[T]) Name() string { return c.name }

func (c *Collection[T]) Get(ctx context.Context, key string) (*T, bool) {
	var v T
	if !c.store.Get(ctx, c.name, key, &v) {
		return nil, false
	}
	return &v, true
}

func (c *Collection[T]) Put(ctx context.Context, key string, v *T) error {
	return c.store.Set(ctx, c.name, key, v)
}

func (c *Collection[T]) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.name, key)
}

// Keys returns the keys of the namespace in ascending order.
func (c *Collection[T]) Keys(ctx context.Context) ([]string, error) {
	keys, err := c.store.Keys(ctx, c.name)
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	return keys, nil
}

// List loads every document of the namespace, ordered by key. Documents
// that fail to load are skipped.
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	keys, err := c.Keys(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(ctx, k); ok {
			out = append(out, *v)
		}
	}
	return out, nil
}
