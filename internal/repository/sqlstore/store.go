package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-fulfillment/internal/repository"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type store struct {
	db          *gorm.DB
	lockTimeout time.Duration
}

// New builds a Repository over a gorm connection. lockTimeout bounds how long a
// transaction waits on a row lock; on MySQL it is set through the DSN instead.
func New(db *gorm.DB, lockTimeout time.Duration) *repository.Repository {
	s := &store{db: db, lockTimeout: lockTimeout}
	return s.build(db)
}

func (s *store) build(db *gorm.DB) *repository.Repository {
	return &repository.Repository{
		Orders:    &orderRepo{db: db},
		Stock:     &stockRepo{db: db},
		Catalog:   &catalogRepo{db: db},
		Carts:     &cartRepo{db: db},
		Addresses: &addressRepo{db: db},
		Promos:    &promoRepo{db: db},
		Tx:        s,
	}
}

func (s *store) WithTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if s.lockTimeout > 0 && tx.Dialector.Name() == "postgres" {
			stmt := fmt.Sprintf("SET LOCAL lock_timeout = %d", s.lockTimeout.Milliseconds())
			if err := tx.Exec(stmt).Error; err != nil {
				return err
			}
		}
		return fn(s.build(tx))
	})
	return translate(err)
}

// translate maps driver lock-wait and deadlock errors to ErrLockConflict.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && (myErr.Number == 1205 || myErr.Number == 1213) {
		return fmt.Errorf("%w: %v", repository.ErrLockConflict, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "55P03" || pgErr.Code == "40P01") {
		return fmt.Errorf("%w: %v", repository.ErrLockConflict, err)
	}
	return err
}
