package services

import (
	"context"
	"fmt"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ItemSource is where an order's lines come from: the user's cart or a single
// buy-now selection.
type ItemSource interface {
	Kind() domain.OrderSource
}

type CartSource struct {
	UserID uint64
}

func (CartSource) Kind() domain.OrderSource { return domain.SourceCart }

type BuyNowSource struct {
	ProductID uint64
	VariantID *uint64
	Quantity  int
}

func (BuyNowSource) Kind() domain.OrderSource { return domain.SourceBuyNow }

// ResolvedLine is a requested line joined with its catalog rows.
type ResolvedLine struct {
	Product  domain.Product
	Variant  *domain.Variant
	Vendor   domain.Vendor
	Quantity int
}

func (r ResolvedLine) StockKey() domain.StockKey {
	k := domain.StockKey{ProductID: r.Product.ID}
	if r.Variant != nil {
		k.VariantID = r.Variant.ID
	}
	return k
}

func (r ResolvedLine) PriceLine() PriceLine {
	pl := PriceLine{
		ProductID:      r.Product.ID,
		VendorID:       r.Vendor.ID,
		VendorDistrict: r.Vendor.District,
		Quantity:       r.Quantity,
		BasePrice:      r.Product.BasePrice,
		Discount:       r.Product.Discount,
		DiscountType:   r.Product.DiscountType,
	}
	if r.Variant != nil {
		p := r.Variant.BasePrice
		pl.VariantPrice = &p
	}
	return pl
}

type requestedItem struct {
	ProductID uint64
	VariantID *uint64
	Quantity  int
}

// CartReader reads and clears the cart that feeds cart-sourced orders.
type CartReader struct {
	log *zap.Logger
}

func NewCartReader(log *zap.Logger) *CartReader {
	return &CartReader{log: log}
}

// Snapshot returns the user's cart items, or EmptyCart when there are none.
func (c *CartReader) Snapshot(ctx context.Context, carts repository.CartRepository, userID uint64) ([]domain.CartItem, error) {
	cart, err := carts.GetWithItems(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, domain.ErrEmptyCart
	}
	return cart.Items, nil
}

// Clear removes the ordered lines from the user's cart. Items added after the
// order was placed stay. It must run inside the transaction that consumed the
// cart.
func (c *CartReader) Clear(ctx context.Context, tx *repository.Repository, userID uint64, lines []domain.StockLine) error {
	removed, err := tx.Carts.RemoveItems(ctx, userID, stockKeys(lines))
	if err != nil {
		return err
	}
	c.log.Debug("ordered items removed from cart",
		zap.Uint64("user_id", userID),
		zap.Int64("removed", removed),
	)
	return nil
}

func (u *OrderService) requestedItems(ctx context.Context, src ItemSource) ([]requestedItem, error) {
	switch v := src.(type) {
	case CartSource:
		items, err := u.carts.Snapshot(ctx, u.repo.Carts, v.UserID)
		if err != nil {
			return nil, err
		}
		out := make([]requestedItem, 0, len(items))
		for _, it := range items {
			out = append(out, requestedItem{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity})
		}
		return out, nil
	case BuyNowSource:
		return []requestedItem{{ProductID: v.ProductID, VariantID: v.VariantID, Quantity: v.Quantity}}, nil
	}
	return nil, domain.InvalidRequest("unknown item source")
}

// resolveLines joins requested items with products, variants and vendors.
func (u *OrderService) resolveLines(ctx context.Context, items []requestedItem) ([]ResolvedLine, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyCart
	}

	productIDs := make([]uint64, 0, len(items))
	var variantIDs []uint64
	for _, it := range items {
		if it.Quantity < 1 || it.Quantity > domain.MaxLineQuantity {
			return nil, domain.InvalidRequest(fmt.Sprintf("quantity must be between 1 and %d", domain.MaxLineQuantity))
		}
		productIDs = append(productIDs, it.ProductID)
		if it.VariantID != nil {
			variantIDs = append(variantIDs, *it.VariantID)
		}
	}

	products, err := u.repo.Catalog.GetProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}
	variants, err := u.repo.Catalog.GetVariants(ctx, variantIDs)
	if err != nil {
		return nil, err
	}
	vendorIDs := make([]uint64, 0, len(products))
	for _, p := range products {
		vendorIDs = append(vendorIDs, p.VendorID)
	}
	vendors, err := u.repo.Catalog.GetVendors(ctx, vendorIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ResolvedLine, 0, len(items))
	for _, it := range items {
		p, ok := products[it.ProductID]
		if !ok {
			return nil, domain.NotFound("product", it.ProductID)
		}
		line := ResolvedLine{Product: p, Quantity: it.Quantity}
		if it.VariantID != nil {
			v, ok := variants[*it.VariantID]
			if !ok || v.ProductID != p.ID {
				return nil, domain.NotFound("variant", *it.VariantID)
			}
			line.Variant = &v
		} else if p.HasVariants {
			return nil, domain.InvalidRequest(fmt.Sprintf("product %d requires a variant", p.ID))
		}
		vendor, ok := vendors[p.VendorID]
		if !ok {
			return nil, domain.NotFound("vendor", p.VendorID)
		}
		line.Vendor = vendor
		out = append(out, line)
	}
	return out, nil
}

func buildOrderLines(lines []ResolvedLine, unitPrices []decimal.Decimal) []domain.OrderLine {
	out := make([]domain.OrderLine, len(lines))
	for i, l := range lines {
		ol := domain.OrderLine{
			ProductID: l.Product.ID,
			VendorID:  l.Vendor.ID,
			Quantity:  l.Quantity,
			UnitPrice: unitPrices[i],
			LineTotal: unitPrices[i].Mul(decimal.NewFromInt(int64(l.Quantity))).Round(2),
		}
		if l.Variant != nil {
			id := l.Variant.ID
			ol.VariantID = &id
		}
		out[i] = ol
	}
	return out
}
