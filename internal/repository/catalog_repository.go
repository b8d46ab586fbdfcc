package repository

import (
	"context"

	"order-fulfillment/internal/domain"
)

type CatalogRepository interface {
	GetProducts(ctx context.Context, ids []uint64) (map[uint64]domain.Product, error)
	GetVariants(ctx context.Context, ids []uint64) (map[uint64]domain.Variant, error)
	GetVendors(ctx context.Context, ids []uint64) (map[uint64]domain.Vendor, error)
}

type CartRepository interface {
	GetWithItems(ctx context.Context, userID uint64) (*domain.Cart, error)
	// RemoveItems drops the user's cart lines for the given stock units.
	RemoveItems(ctx context.Context, userID uint64, keys []domain.StockKey) (int64, error)
	// RemoveStockItems drops every cart line pointing at the stock unit,
	// except those in the given user's cart.
	RemoveStockItems(ctx context.Context, key domain.StockKey, exceptUserID uint64) (int64, error)
}

type AddressRepository interface {
	GetByUser(ctx context.Context, userID uint64) (*domain.Address, error)
	Upsert(ctx context.Context, userID uint64, addr domain.AddressSnapshot) (*domain.Address, error)
}

type PromoRepository interface {
	FindByCode(ctx context.Context, code string) (*domain.PromoCode, error)
}
