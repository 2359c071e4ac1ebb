package bootstrap

import (
	"context"
	"fmt"

	"github.com/wolfman30/telemedicine-client/cmd/mainconfig"
	"github.com/wolfman30/telemedicine-client/internal/cache"
	appconfig "github.com/wolfman30/telemedicine-client/internal/config"
	"github.com/wolfman30/telemedicine-client/internal/observability/metrics"
	"github.com/wolfman30/telemedicine-client/pkg/logging"
)

// BuildCacheStore returns the store selected by TELEMEDICINE_CACHE_STORE, or
// nil for "none". A redis store whose server is unreachable falls back to
// memory.
func BuildCacheStore(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, pm *metrics.ProviderMetrics) (cache.Store, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	opts := []cache.Option{cache.WithLogger(logger), cache.WithMetrics(pm)}

	switch cfg.CacheStore {
	case appconfig.CacheStoreNone:
		logger.Info("provider cache disabled")
		return nil, nil
	case appconfig.CacheStoreRedis:
		client, err := connectRedis(ctx, cfg)
		if err != nil {
			logger.Warn("redis not available, falling back to in-memory provider cache", "error", err)
			return cache.New(cache.NewMemoryBackend(), opts...), nil
		}
		return cache.New(cache.NewRedisBackend(client), opts...), nil
	case appconfig.CacheStoreDynamoDB:
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		client := mainconfig.NewDynamoClient(awsCfg, cfg)
		return cache.New(cache.NewDynamoBackend(client, cfg.CacheTable), opts...), nil
	case appconfig.CacheStoreMemory, "":
		return cache.New(cache.NewMemoryBackend(), opts...), nil
	}
	return nil, fmt.Errorf("bootstrap: unknown cache store %q", cfg.CacheStore)
}
