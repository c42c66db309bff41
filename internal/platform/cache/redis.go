// Package cache holds the redis backed helpers: the listing rank index and
// the distributed lock used by background jobs.
package cache

import (
	"context"
	"time"

	"github.com/fatflowers/entitlement/pkg/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// NewClient connects to redis. An unreachable server is logged and not
// fatal; callers see the error on first use.
func NewClient(lc fx.Lifecycle, cfg *config.Config, log *zap.SugaredLogger) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Addr,
		Password: cfg.Cache.Password,
		DB:       cfg.Cache.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if pong, err := client.Ping(ctx).Result(); err != nil {
		log.Warnw("could not connect to redis", "addr", cfg.Cache.Addr, "err", err)
	} else {
		log.Infow("connected to redis", "addr", cfg.Cache.Addr, "pong", pong)
	}

	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			log.Infow("closing redis client")
			return client.Close()
		},
	})
	return client
}

var Module = fx.Options(
	fx.Provide(NewClient, NewListingIndex, NewLocker),
)
