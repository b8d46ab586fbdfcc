package repository

import (
	"context"
	"errors"
	"time"

	"order-fulfillment/internal/domain"

	"github.com/google/uuid"
)

// ErrLockConflict is returned when a row lock could not be acquired in time
// or the database picked the transaction as a deadlock victim.
var ErrLockConflict = errors.New("repository: lock conflict")

type OrderListFilter struct {
	UserID   *uint64
	VendorID *uint64
	Limit    int
	Offset   int
}

type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// FindByIDForUpdate loads the order and holds an exclusive row lock until
	// the surrounding transaction ends.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderListFilter) ([]domain.Order, int64, error)
	// HasPromoUsage reports whether the user has an order in one of the given
	// statuses carrying the promo code.
	HasPromoUsage(ctx context.Context, userID uint64, code string, statuses []domain.OrderStatus) (bool, error)
	ListExpiredPending(ctx context.Context, now time.Time, limit int) ([]domain.Order, error)
}
