package memory

import (
	"context"
	"sort"
	"time"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"github.com/google/uuid"
)

type orderRepo struct{ v *view }

func (r *orderRepo) Create(_ context.Context, o *domain.Order) error {
	r.v.write(func(s *state) {
		for i := range o.Lines {
			o.Lines[i].ID = s.id()
			o.Lines[i].OrderID = o.ID
		}
		s.orders[o.ID] = copyOrder(*o)
	})
	return nil
}

func (r *orderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	var out *domain.Order
	r.v.read(func(s *state) {
		if o, ok := s.orders[id]; ok {
			c := copyOrder(o)
			out = &c
		}
	})
	return out, nil
}

// FindByIDForUpdate needs no lock here: transactions are already serialized.
func (r *orderRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.FindByID(ctx, id)
}

func (r *orderRepo) Update(_ context.Context, o *domain.Order) error {
	r.v.write(func(s *state) {
		cur, ok := s.orders[o.ID]
		if !ok {
			return
		}
		cur.Status = o.Status
		cur.PaymentStatus = o.PaymentStatus
		cur.TransactionID = o.TransactionID
		cur.ExternalTransactionID = o.ExternalTransactionID
		cur.StockCommitted = o.StockCommitted
		cur.ReservedUntil = o.ReservedUntil
		cur.UpdatedAt = o.UpdatedAt
		s.orders[o.ID] = cur
	})
	return nil
}

func hasVendor(o domain.Order, vendorID uint64) bool {
	for _, l := range o.Lines {
		if l.VendorID == vendorID {
			return true
		}
	}
	return false
}

func (r *orderRepo) List(_ context.Context, f repository.OrderListFilter) ([]domain.Order, int64, error) {
	var matched []domain.Order
	r.v.read(func(s *state) {
		for _, o := range s.orders {
			if f.UserID != nil && o.UserID != *f.UserID {
				continue
			}
			if f.VendorID != nil && !hasVendor(o, *f.VendorID) {
				continue
			}
			matched = append(matched, copyOrder(o))
		}
	})
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := int64(len(matched))
	if f.Offset >= len(matched) {
		return []domain.Order{}, total, nil
	}
	end := len(matched)
	if f.Limit > 0 && f.Offset+f.Limit < end {
		end = f.Offset + f.Limit
	}
	return matched[f.Offset:end], total, nil
}

func (r *orderRepo) HasPromoUsage(_ context.Context, userID uint64, code string, statuses []domain.OrderStatus) (bool, error) {
	found := false
	r.v.read(func(s *state) {
		for _, o := range s.orders {
			if o.UserID != userID || o.PromoCode == nil || *o.PromoCode != code {
				continue
			}
			for _, st := range statuses {
				if o.Status == st {
					found = true
					return
				}
			}
		}
	})
	return found, nil
}

func (r *orderRepo) ListExpiredPending(_ context.Context, now time.Time, limit int) ([]domain.Order, error) {
	var out []domain.Order
	r.v.read(func(s *state) {
		for _, o := range s.orders {
			if o.Status == domain.StatusPending && o.ReservedUntil != nil && o.ReservedUntil.Before(now) {
				out = append(out, copyOrder(o))
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].ReservedUntil.Before(*out[j].ReservedUntil) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type stockRepo struct{ v *view }

func (r *stockRepo) Get(_ context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error) {
	out := make(map[domain.StockKey]domain.StockUnit, len(keys))
	r.v.read(func(s *state) {
		for _, k := range keys {
			if k.IsVariant() {
				if v, ok := s.variants[k.VariantID]; ok && v.ProductID == k.ProductID {
					out[k] = domain.StockUnit{Key: k, Quantity: v.Quantity, Status: domain.DeriveStockStatus(v.Quantity)}
				}
				continue
			}
			if p, ok := s.products[k.ProductID]; ok {
				out[k] = domain.StockUnit{Key: k, Quantity: p.Quantity, Status: domain.DeriveStockStatus(p.Quantity)}
			}
		}
	})
	return out, nil
}

func (r *stockRepo) GetForUpdate(ctx context.Context, keys []domain.StockKey) (map[domain.StockKey]domain.StockUnit, error) {
	return r.Get(ctx, keys)
}

func (r *stockRepo) Save(_ context.Context, unit domain.StockUnit) error {
	r.v.write(func(s *state) {
		status := domain.DeriveStockStatus(unit.Quantity)
		if unit.Key.IsVariant() {
			if v, ok := s.variants[unit.Key.VariantID]; ok {
				v.Quantity, v.Status = unit.Quantity, status
				s.variants[v.ID] = v
			}
			return
		}
		if p, ok := s.products[unit.Key.ProductID]; ok {
			p.Quantity, p.Status = unit.Quantity, status
			s.products[p.ID] = p
		}
	})
	return nil
}

type catalogRepo struct{ v *view }

func (r *catalogRepo) GetProducts(_ context.Context, ids []uint64) (map[uint64]domain.Product, error) {
	out := make(map[uint64]domain.Product, len(ids))
	r.v.read(func(s *state) {
		for _, id := range ids {
			if p, ok := s.products[id]; ok {
				out[id] = p
			}
		}
	})
	return out, nil
}

func (r *catalogRepo) GetVariants(_ context.Context, ids []uint64) (map[uint64]domain.Variant, error) {
	out := make(map[uint64]domain.Variant, len(ids))
	r.v.read(func(s *state) {
		for _, id := range ids {
			if v, ok := s.variants[id]; ok {
				out[id] = v
			}
		}
	})
	return out, nil
}

func (r *catalogRepo) GetVendors(_ context.Context, ids []uint64) (map[uint64]domain.Vendor, error) {
	out := make(map[uint64]domain.Vendor, len(ids))
	r.v.read(func(s *state) {
		for _, id := range ids {
			if v, ok := s.vendors[id]; ok {
				out[id] = v
			}
		}
	})
	return out, nil
}

type cartRepo struct{ v *view }

func (r *cartRepo) GetWithItems(_ context.Context, userID uint64) (*domain.Cart, error) {
	var out *domain.Cart
	r.v.read(func(s *state) {
		if c, ok := s.carts[userID]; ok {
			cc := copyCart(c)
			out = &cc
		}
	})
	return out, nil
}

func (r *cartRepo) RemoveItems(_ context.Context, userID uint64, keys []domain.StockKey) (int64, error) {
	drop := make(map[domain.StockKey]struct{}, len(keys))
	for _, k := range keys {
		drop[k] = struct{}{}
	}
	var removed int64
	r.v.write(func(s *state) {
		c, ok := s.carts[userID]
		if !ok {
			return
		}
		kept := c.Items[:0:0]
		for _, it := range c.Items {
			if _, hit := drop[it.StockKey()]; hit {
				removed++
				continue
			}
			kept = append(kept, it)
		}
		c.Items = kept
		s.carts[userID] = c
	})
	return removed, nil
}

func (r *cartRepo) RemoveStockItems(_ context.Context, key domain.StockKey, exceptUserID uint64) (int64, error) {
	var removed int64
	r.v.write(func(s *state) {
		for uid, c := range s.carts {
			if uid == exceptUserID {
				continue
			}
			kept := c.Items[:0:0]
			for _, it := range c.Items {
				if it.StockKey() == key {
					removed++
					continue
				}
				kept = append(kept, it)
			}
			c.Items = kept
			s.carts[uid] = c
		}
	})
	return removed, nil
}

type addressRepo struct{ v *view }

func (r *addressRepo) GetByUser(_ context.Context, userID uint64) (*domain.Address, error) {
	var out *domain.Address
	r.v.read(func(s *state) {
		if a, ok := s.addresses[userID]; ok {
			out = &a
		}
	})
	return out, nil
}

func (r *addressRepo) Upsert(_ context.Context, userID uint64, addr domain.AddressSnapshot) (*domain.Address, error) {
	var out domain.Address
	r.v.write(func(s *state) {
		a, ok := s.addresses[userID]
		if !ok {
			a = domain.Address{ID: s.id(), UserID: userID}
		}
		a.AddressSnapshot = addr
		s.addresses[userID] = a
		out = a
	})
	return &out, nil
}

type promoRepo struct{ v *view }

func (r *promoRepo) FindByCode(_ context.Context, code string) (*domain.PromoCode, error) {
	var out *domain.PromoCode
	r.v.read(func(s *state) {
		if p, ok := s.promos[code]; ok {
			out = &p
		}
	})
	return out, nil
}
