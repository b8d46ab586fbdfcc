package sqlstore

import (
	"context"
	"sort"
	"time"

	"order-fulfillment/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type stockRepo struct {
	db *gorm.DB
}

type stockRow struct {
	ID        uint64
	ProductID uint64
	Quantity  int
}

func splitKeys(keys []domain.StockKey) (products, variants []uint64) {
	for _, k := range keys {
		if k.IsVariant() {
			variants = append(variants, k.VariantID)
		} else {
			products = append(products, k.ProductID)
		}
	}
	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })
	sort.Slice(variants, func(i, j int) bool { return variants[i] < variants[j] })
	return products, variants
}

func (r *stockRepo) Get(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error) {
	return r.load(ctx, keys, false)
}

func (r *stockRepo) GetForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error) {
	return r.load(ctx, keys, true)
}

func (r *stockRepo) load(ctx context.Context, keys []domain.StockKey, lock bool) (map[domain.StockKey]domain.StockUnit, error) {
	products, variants := splitKeys(keys)
	out := make(map[domain.StockKey]domain.StockUnit, len(keys))

	query := func(model any) *gorm.DB {
		q := r.db.WithContext(ctx).Model(model)
		if lock {
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		return q
	}

	if len(products) > 0 {
		var rows []stockRow
		err := query(&domain.Product{}).
			Select("id, id AS product_id, quantity").
			Where("id IN ?", products).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, translate(err)
		}
		for _, row := range rows {
			k := domain.StockKey{ProductID: row.ID}
			out[k] = domain.StockUnit{Key: k, Quantity: row.Quantity, Status: domain.DeriveStockStatus(row.Quantity)}
		}
	}

	if len(variants) > 0 {
		var rows []stockRow
		err := query(&domain.Variant{}).
			Select("id, product_id, quantity").
			Where("id IN ?", variants).
			Order("id ASC").
			Find(&rows).Error
		if err != nil {
			return nil, translate(err)
		}
		for _, row := range rows {
			k := domain.StockKey{ProductID: row.ProductID, VariantID: row.ID}
			out[k] = domain.StockUnit{Key: k, Quantity: row.Quantity, Status: domain.DeriveStockStatus(row.Quantity)}
		}
	}

	// Keyed by the variant's real product, so a variant requested under the
	// wrong product is simply absent from the result.
	return out, nil
}

func (r *stockRepo) Save(ctx context.Context, unit domain.StockUnit) error {
	fields := map[string]any{
		"quantity":   unit.Quantity,
		"status":     domain.DeriveStockStatus(unit.Quantity),
		"updated_at": time.Now(),
	}
	var q *gorm.DB
	if unit.Key.IsVariant() {
		q = r.db.WithContext(ctx).Model(&domain.Variant{}).Where("id = ?", unit.Key.VariantID)
	} else {
		q = r.db.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", unit.Key.ProductID)
	}
	return translate(q.Updates(fields).Error)
}
