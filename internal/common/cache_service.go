package common

import (
	"strings"
	"time"

	"tenf/portal/internal/metrics"

	"github.com/patrickmn/go-cache"
)

// CacheService is the in-process cache for Twitch and Discord lookups.
type CacheService struct {
	cache   *cache.Cache
	metrics *metrics.MetricsRegistry
}

// Ensure CacheService implements CacheInterface
var _ CacheInterface = (*CacheService)(nil)

func NewCacheService(defaultExpirationSeconds, cleanUpIntervalSeconds int, m *metrics.MetricsRegistry) *CacheService {
	defaultExpiration := time.Duration(defaultExpirationSeconds) * time.Second
	cleanUpInterval := time.Duration(cleanUpIntervalSeconds) * time.Second
	c := cache.New(defaultExpiration, cleanUpInterval)
	return &CacheService{cache: c, metrics: m}
}

func (cs *CacheService) Set(key string, value interface{}, duration time.Duration) {
	cs.cache.Set(key, value, duration)
}

func (cs *CacheService) Get(key string) (interface{}, bool) {
	val, found := cs.cache.Get(key)
	if cs.metrics != nil {
		if found {
			cs.metrics.CacheHitsTotal.WithLabelValues(keyPattern(key)).Inc()
		} else {
			cs.metrics.CacheMissesTotal.WithLabelValues(keyPattern(key)).Inc()
		}
	}
	return val, found
}

func (cs *CacheService) Delete(key string) {
	cs.cache.Delete(key)
}

func (cs *CacheService) GetOrSet(
	key string,
	duration time.Duration,
	loader func() (any, error)) (interface{}, error) {
	if val, found := cs.Get(key); found {
		return val, nil
	}

	val, err := loader()
	if err != nil {
		return nil, err
	}

	cs.Set(key, val, duration)
	return val, nil
}

// keyPattern keeps the prefix of a cache key ("TW_USER_alice" -> "TW_USER_")
// so metric labels stay bounded.
func keyPattern(key string) string {
	if i := strings.LastIndex(key, "_"); i >= 0 {
		return key[:i+1]
	}
	return key
}
