package bootstrap

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/telemedicine-client/internal/config"
)

const redisPingTimeout = 3 * time.Second

// connectRedis dials the cache redis and pings it. The client is closed when
// the ping fails.
func connectRedis(ctx context.Context, cfg *appconfig.Config) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, redisPingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("bootstrap: ping redis %s: %w", cfg.RedisAddr, err)
	}
	return client, nil
}
