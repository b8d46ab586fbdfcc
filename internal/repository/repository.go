package repository

import "context"

// TxRunner opens a transaction and hands the callback a Repository whose
// members all run inside it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(tx *Repository) error) error
}

type Repository struct {
	Orders    OrderRepository
	Stock     StockRepository
	Catalog   CatalogRepository
	Carts     CartRepository
	Addresses AddressRepository
	Promos    PromoRepository

	Tx TxRunner
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx *Repository) error) error {
	return r.Tx.WithTx(ctx, fn)
}
