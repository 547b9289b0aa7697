package blob

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tenf/portal/internal/config"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/metrics"
)

// Open selects the backend from cfg. With "auto" the Redis client is used
// when it answers PING within two seconds, otherwise the data directory.
func Open(ctx context.Context, cfg config.BlobConfig, client *redis.Client, m *metrics.MetricsRegistry) (Store, error) {
	switch cfg.Backend {
	case "redis":
		if client == nil {
			return nil, fmt.Errorf("blob backend redis requires a redis client")
		}
		return NewRedisStore(client, m), nil
	case "filesystem":
		return NewFileStore(cfg.DataDir, m)
	case "auto", "":
		if client != nil {
			pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			defer cancel()
			if err := client.Ping(pingCtx).Err(); err == nil {
				logging.Info("Blob store using redis backend")
				return NewRedisStore(client, m), nil
			}
		}
		logging.Info("Blob store falling back to local data dir", "data_dir", cfg.DataDir)
		return NewFileStore(cfg.DataDir, m)
	default:
		return nil, fmt.Errorf("unknown blob backend %q", cfg.Backend)
	}
}
