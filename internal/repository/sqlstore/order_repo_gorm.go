package sqlstore

import (
	"context"
	"errors"
	"time"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type orderRepo struct {
	db *gorm.DB
}

func linesByID(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }

func (r *orderRepo) Create(ctx context.Context, o *domain.Order) error {
	if err := r.db.WithContext(ctx).Create(o).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).Preload("Lines", linesByID).First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var o domain.Order
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&o, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, translate(err)
	}
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&o.Lines).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

// Update persists the mutable part of an order. Lines and prices are never
// rewritten after creation.
func (r *orderRepo) Update(ctx context.Context, o *domain.Order) error {
	err := r.db.WithContext(ctx).Model(&domain.Order{}).Where("id = ?", o.ID).Updates(map[string]any{
		"status":                  o.Status,
		"payment_status":          o.PaymentStatus,
		"transaction_id":          o.TransactionID,
		"external_transaction_id": o.ExternalTransactionID,
		"stock_committed":         o.StockCommitted,
		"reserved_until":          o.ReservedUntil,
		"updated_at":              o.UpdatedAt,
	}).Error
	return translate(err)
}

func (r *orderRepo) List(ctx context.Context, f repository.OrderListFilter) ([]domain.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&domain.Order{})
	if f.UserID != nil {
		q = q.Where("user_id = ?", *f.UserID)
	}
	if f.VendorID != nil {
		sub := r.db.Model(&domain.OrderLine{}).Select("order_id").Where("vendor_id = ?", *f.VendorID)
		q = q.Where("id IN (?)", sub)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var out []domain.Order
	err := q.Preload("Lines", linesByID).
		Order("created_at DESC").
		Limit(f.Limit).
		Offset(f.Offset).
		Find(&out).Error
	return out, total, err
}

func (r *orderRepo) HasPromoUsage(ctx context.Context, userID uint64, code string, statuses []domain.OrderStatus) (bool, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&domain.Order{}).
		Where("user_id = ? AND promo_code = ? AND status IN ?", userID, code, statuses).
		Count(&cnt).Error
	return cnt > 0, err
}

func (r *orderRepo) ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Order, error) {
	var out []domain.Order
	err := r.db.WithContext(ctx).
		Where("status = ? AND reserved_until IS NOT NULL AND reserved_until < ?", domain.StatusPending, now).
		Order("reserved_until ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
