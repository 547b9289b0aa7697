package workers

import (
	"context"
	"time"

	"tenf/portal/internal/logging"
	"tenf/portal/internal/models/dtos"
)

// StreamLister is satisfied by *services.LiveService.
type StreamLister interface {
	LiveStreams(ctx context.Context) ([]dtos.TwitchStream, error)
}

// LiveCacheWorker keeps the live streams cache warm so the public live page
// never waits on Helix.
type LiveCacheWorker struct {
	live     StreamLister
	interval time.Duration
}

func NewLiveCacheWorker(live StreamLister, interval time.Duration) *LiveCacheWorker {
	if interval <= 0 {
		interval = 45 * time.Second
	}
	return &LiveCacheWorker{live: live, interval: interval}
}

// Start refills the cache immediately and then on every tick.
func (w *LiveCacheWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.refill(ctx)
	for {
		select {
		case <-ticker.C:
			w.refill(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *LiveCacheWorker) refill(ctx context.Context) int {
	streams, err := w.live.LiveStreams(ctx)
	if err != nil {
		logging.Warn("[LiveCacheWorker] refill failed", "error", err)
		return 0
	}
	return len(streams)
}
