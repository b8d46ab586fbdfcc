package repository

import (
	"context"

	"order-fulfillment/internal/domain"
)

// StockRepository is only used by the stock ledger.
type StockRepository interface {
	Get(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error)
	// GetForUpdate locks the rows products first, then variants, each in
	// ascending id order.
	GetForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error)
	Save(ctx context.Context, unit domain.StockUnit) error
}
