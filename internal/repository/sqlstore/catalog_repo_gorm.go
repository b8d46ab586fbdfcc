package sqlstore

import (
	"context"
	"errors"
	"strings"

	"order-fulfillment/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type catalogRepo struct {
	db *gorm.DB
}

func (r *catalogRepo) GetProducts(ctx context.Context, ids []uint64) (map[uint64]domain.Product, error) {
	out := make(map[uint64]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []domain.Product
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, p := range list {
		out[p.ID] = p
	}
	return out, nil
}

func (r *catalogRepo) GetVariants(ctx context.Context, ids []uint64) (map[uint64]domain.Variant, error) {
	out := make(map[uint64]domain.Variant, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []domain.Variant
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, v := range list {
		out[v.ID] = v
	}
	return out, nil
}

func (r *catalogRepo) GetVendors(ctx context.Context, ids []uint64) (map[uint64]domain.Vendor, error) {
	out := make(map[uint64]domain.Vendor, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var list []domain.Vendor
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&list).Error; err != nil {
		return nil, err
	}
	for _, v := range list {
		out[v.ID] = v
	}
	return out, nil
}

type cartRepo struct {
	db *gorm.DB
}

func (r *cartRepo) GetWithItems(ctx context.Context, userID uint64) (*domain.Cart, error) {
	var c domain.Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&c, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cartRepo) RemoveItems(ctx context.Context, userID uint64, keys []domain.StockKey) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	products, variants := splitKeys(keys)
	var (
		conds []string
		args  []any
	)
	if len(products) > 0 {
		conds = append(conds, "(variant_id IS NULL AND product_id IN ?)")
		args = append(args, products)
	}
	if len(variants) > 0 {
		conds = append(conds, "variant_id IN ?")
		args = append(args, variants)
	}

	carts := r.db.Model(&domain.Cart{}).Select("id").Where("user_id = ?", userID)
	tx := r.db.WithContext(ctx).
		Where("cart_id IN (?)", carts).
		Where("("+strings.Join(conds, " OR ")+")", args...).
		Delete(&domain.CartItem{})
	return tx.RowsAffected, tx.Error
}

func (r *cartRepo) RemoveStockItems(ctx context.Context, key domain.StockKey, exceptUserID uint64) (int64, error) {
	own := r.db.Model(&domain.Cart{}).Select("id").Where("user_id = ?", exceptUserID)
	q := r.db.WithContext(ctx).Where("product_id = ? AND cart_id NOT IN (?)", key.ProductID, own)
	if key.IsVariant() {
		q = q.Where("variant_id = ?", key.VariantID)
	} else {
		q = q.Where("variant_id IS NULL")
	}
	tx := q.Delete(&domain.CartItem{})
	return tx.RowsAffected, tx.Error
}

type addressRepo struct {
	db *gorm.DB
}

func (r *addressRepo) GetByUser(ctx context.Context, userID uint64) (*domain.Address, error) {
	var a domain.Address
	err := r.db.WithContext(ctx).First(&a, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *addressRepo) Upsert(ctx context.Context, userID uint64, addr domain.AddressSnapshot) (*domain.Address, error) {
	rec := domain.Address{UserID: userID, AddressSnapshot: addr}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"province", "district", "city", "street_line", "landmark"}),
		}).
		Create(&rec).Error
	if err != nil {
		return nil, translate(err)
	}
	return r.GetByUser(ctx, userID)
}

type promoRepo struct {
	db *gorm.DB
}

func (r *promoRepo) FindByCode(ctx context.Context, code string) (*domain.PromoCode, error) {
	var p domain.PromoCode
	err := r.db.WithContext(ctx).First(&p, "code = ?", code).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}
