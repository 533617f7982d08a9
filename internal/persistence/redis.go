package persistence

import (
	"context"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/support-hub/internal/config"
)

// Redis carries the go-redis client shared by the notification relay and
// readiness checks.
type Redis struct {
	Client *redis.Client
	addr   string
}

// NewRedis builds the client and probes the server once. A failed probe is
// only logged since the relay reconnects on its own.
func NewRedis(ctx context.Context, cfg config.RedisConfig, logger *zap.Logger) *Redis {
	opts := &redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.DialTimeoutSec > 0 {
		opts.DialTimeout = time.Duration(cfg.DialTimeoutSec) * time.Second
	}
	r := &Redis{Client: redis.NewClient(opts), addr: cfg.Addr}

	if err := r.Ping(ctx); err != nil {
		logger.Warn("redis probe failed", zap.String("addr", cfg.Addr), zap.Error(err))
	} else {
		logger.Info("redis reachable", zap.String("addr", cfg.Addr))
	}
	return r
}

func (r *Redis) Close() {
	if r == nil || r.Client == nil {
		return
	}
	_ = r.Client.Close()
}

// Ping reports whether the server answers.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return goerr.New("redis client not configured")
	}
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return goerr.Wrap(err, "redis ping", goerr.V("addr", r.addr))
	}
	return nil
}
