// Package memory is an in-process Repository. Transactions are serialized and
// run against a private copy of the data that is swapped in on commit, so a
// failed callback leaves nothing behind.
package memory

import (
	"context"
	"sync"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"github.com/google/uuid"
)

type state struct {
	orders    map[uuid.UUID]domain.Order
	products  map[uint64]domain.Product
	variants  map[uint64]domain.Variant
	vendors   map[uint64]domain.Vendor
	carts     map[uint64]domain.Cart
	addresses map[uint64]domain.Address
	promos    map[string]domain.PromoCode
	nextID    uint64
}

func newState() *state {
	return &state{
		orders:    map[uuid.UUID]domain.Order{},
		products:  map[uint64]domain.Product{},
		variants:  map[uint64]domain.Variant{},
		vendors:   map[uint64]domain.Vendor{},
		carts:     map[uint64]domain.Cart{},
		addresses: map[uint64]domain.Address{},
		promos:    map[string]domain.PromoCode{},
	}
}

func (s *state) id() uint64 {
	s.nextID++
	return s.nextID
}

func (s *state) clone() *state {
	c := newState()
	c.nextID = s.nextID
	for k, v := range s.orders {
		c.orders[k] = copyOrder(v)
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.variants {
		c.variants[k] = v
	}
	for k, v := range s.vendors {
		c.vendors[k] = v
	}
	for k, v := range s.carts {
		c.carts[k] = copyCart(v)
	}
	for k, v := range s.addresses {
		c.addresses[k] = v
	}
	for k, v := range s.promos {
		c.promos[k] = v
	}
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Lines = append([]domain.OrderLine(nil), o.Lines...)
	return o
}

func copyCart(c domain.Cart) domain.Cart {
	c.Items = append([]domain.CartItem(nil), c.Items...)
	return c
}

// Store holds the committed data. Writes made outside WithTx are visible
// immediately and are meant for seeding.
type Store struct {
	txMu   sync.Mutex
	dataMu sync.RWMutex
	data   *state
}

func NewStore() *Store {
	return &Store{data: newState()}
}

// Repository returns a non-transactional view over the committed data.
func (s *Store) Repository() *repository.Repository {
	return s.build(&view{store: s})
}

func (s *Store) build(v *view) *repository.Repository {
	return &repository.Repository{
		Orders:    &orderRepo{v},
		Stock:     &stockRepo{v},
		Catalog:   &catalogRepo{v},
		Carts:     &cartRepo{v},
		Addresses: &addressRepo{v},
		Promos:    &promoRepo{v},
		Tx:        s,
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(tx *repository.Repository) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.dataMu.RLock()
	work := s.data.clone()
	s.dataMu.RUnlock()

	if err := fn(s.build(&view{store: s, tx: work})); err != nil {
		return err
	}

	s.dataMu.Lock()
	s.data = work
	s.dataMu.Unlock()
	return nil
}

// view runs a callback against either the transaction copy or the committed
// data under the data lock.
type view struct {
	store *Store
	tx    *state
}

func (v *view) read(fn func(s *state)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.dataMu.RLock()
	defer v.store.dataMu.RUnlock()
	fn(v.store.data)
}

func (v *view) write(fn func(s *state)) {
	if v.tx != nil {
		fn(v.tx)
		return
	}
	v.store.dataMu.Lock()
	defer v.store.dataMu.Unlock()
	fn(v.store.data)
}
