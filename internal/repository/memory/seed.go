package memory

import (
	"order-fulfillment/internal/domain"

	"github.com/google/uuid"
)

func (s *Store) seed(fn func(st *state)) {
	s.dataMu.Lock()
	defer s.dataMu.Unlock()
	fn(s.data)
}

func (s *Store) PutVendor(v domain.Vendor) {
	s.seed(func(st *state) { st.vendors[v.ID] = v })
}

// PutProduct stores the product with its status derived from quantity.
func (s *Store) PutProduct(p domain.Product) {
	p.Status = domain.DeriveStockStatus(p.Quantity)
	s.seed(func(st *state) { st.products[p.ID] = p })
}

func (s *Store) PutVariant(v domain.Variant) {
	v.Status = domain.DeriveStockStatus(v.Quantity)
	s.seed(func(st *state) { st.variants[v.ID] = v })
}

func (s *Store) PutPromo(p domain.PromoCode) {
	s.seed(func(st *state) { st.promos[p.Code] = p })
}

func (s *Store) PutOrder(o domain.Order) {
	s.seed(func(st *state) { st.orders[o.ID] = copyOrder(o) })
}

func (s *Store) PutCart(userID uint64, items ...domain.CartItem) {
	s.seed(func(st *state) {
		c, ok := st.carts[userID]
		if !ok {
			c = domain.Cart{ID: st.id(), UserID: userID}
		}
		for _, it := range items {
			it.ID = st.id()
			it.CartID = c.ID
			c.Items = append(c.Items, it)
		}
		st.carts[userID] = c
	})
}

func (s *Store) Product(id uint64) (domain.Product, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	p, ok := s.data.products[id]
	return p, ok
}

func (s *Store) Variant(id uint64) (domain.Variant, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	v, ok := s.data.variants[id]
	return v, ok
}

func (s *Store) Cart(userID uint64) (domain.Cart, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	c, ok := s.data.carts[userID]
	return copyCart(c), ok
}

func (s *Store) Order(id uuid.UUID) (domain.Order, bool) {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	o, ok := s.data.orders[id]
	return copyOrder(o), ok
}

func (s *Store) OrderCount() int {
	s.dataMu.RLock()
	defer s.dataMu.RUnlock()
	return len(s.data.orders)
}
