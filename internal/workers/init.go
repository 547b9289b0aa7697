package workers

import (
	"context"
	"time"
)

type WorkersContainer struct {
	LiveCache *LiveCacheWorker
}

// InitWorkers starts the cache workers. live is nil when Twitch is not
// configured, in which case nothing is started.
func InitWorkers(ctx context.Context, live StreamLister, interval time.Duration) *WorkersContainer {
	c := &WorkersContainer{}
	if live == nil {
		return c
	}
	c.LiveCache = NewLiveCacheWorker(live, interval)
	go c.LiveCache.Start(ctx)
	return c
}
