package payment

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedStore remembers transactions that reached a terminal state.
type ProcessedStore interface {
	Seen(ctx context.Context, transactionID string) (bool, error)
	MarkReconciled(ctx context.Context, transactionID string) error
}

type RedisProcessedStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProcessedStore(client *redis.Client, ttl time.Duration) *RedisProcessedStore {
	return &RedisProcessedStore{client: client, ttl: ttl}
}

func processedKey(transactionID string) string {
	return "payment:processed:" + transactionID
}

func (s *RedisProcessedStore) Seen(ctx context.Context, transactionID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedKey(transactionID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *RedisProcessedStore) MarkReconciled(ctx context.Context, transactionID string) error {
	return s.client.SetNX(ctx, processedKey(transactionID), time.Now().Unix(), s.ttl).Err()
}

// MemoryProcessedStore is used when Redis is disabled. It does not survive a
// restart; the order status check in the engine still prevents double
// reconciliation.
type MemoryProcessedStore struct {
	mu   sync.RWMutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: map[string]struct{}{}}
}

func (s *MemoryProcessedStore) Seen(_ context.Context, transactionID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.seen[transactionID]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkReconciled(_ context.Context, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seen[transactionID] = struct{}{}
	return nil
}
