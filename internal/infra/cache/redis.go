package cache

import (
	"context"
	"fmt"
	"time"

	"order-fulfillment/internal/config"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const pingTimeout = 5 * time.Second

// NewOrderCache returns the client backing the short-lived order read cache.
func NewOrderCache(cfg config.Redis, log *zap.Logger) (*redisv8.Client, error) {
	rdb := redisv8.NewClient(&redisv8.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     200,
		MinIdleConns: 20,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  500 * time.Millisecond,
		WriteTimeout: 500 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("order cache connected", zap.String("addr", cfg.Addr))
	return rdb, nil
}

// NewPaymentStore returns the client that records reconciled payment
// transactions.
func NewPaymentStore(cfg config.Redis, log *zap.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("payment store connected", zap.String("addr", cfg.Addr))
	return rdb, nil
}
