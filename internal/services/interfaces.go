package services

import (
	"context"
	"time"

	"order-fulfillment/internal/domain"

	"github.com/go-redis/redis/v8"
)

// Notifier delivers order notifications. Calls are best effort: a failure is
// logged and never undoes the change that triggered it.
type Notifier interface {
	NotifyOrderPlaced(ctx context.Context, order *domain.Order) error
	NotifyStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error
}

// PaymentGateway is one external payment provider.
type PaymentGateway interface {
	Initiate(ctx context.Context, order *domain.Order) (*domain.RedirectDescriptor, error)
	Verify(ctx context.Context, token string, order *domain.Order) (*domain.VerificationResult, error)
	// MarkReconciled records that a verified outcome of the transaction was
	// applied so that repeated callbacks are reported as already processed.
	MarkReconciled(ctx context.Context, transactionID string) error
}

// OrderCacheClient is the part of the Redis client the order read cache uses.
type OrderCacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

var _ OrderCacheClient = (*redis.Client)(nil)
