package redis

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"beacon/internal/config"
	"beacon/pkg/e"
)

const connectTimeout = 5 * time.Second

// Redis holds the shared client backing the first-page cache and the alert
// queue. Both features degrade gracefully at runtime, but a misconfigured
// address should fail at boot rather than on first use.
type Redis struct {
	Client *redis.Client
}

func NewRedis(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Redis, error) {
	const op = "redis.NewRedis"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error("redis unreachable",
			slog.String("op", op),
			slog.String("addr", cfg.Redis.Addr),
			slog.Any("error", err),
		)
		return nil, e.Wrap(op, err)
	}
	logger.Info("redis connection established", slog.String("addr", cfg.Redis.Addr))

	return &Redis{Client: client}, nil
}

func (r *Redis) Close() error {
	return r.Client.Close()
}
