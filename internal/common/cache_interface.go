package common

import "time"

// CacheInterface is the read-through cache used for Helix lookups.
type CacheInterface interface {
	Set(key string, value interface{}, duration time.Duration)
	Get(key string) (interface{}, bool)
	Delete(key string)
	// GetOrSet returns the cached value or stores what loader returns.
	// Loader errors are not cached.
	GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error)
}
