package services

import (
	"sort"
	"strings"

	"order-fulfillment/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var hundred = decimal.NewFromInt(100)

// ShippingRates are the two fee tiers charged per distinct vendor district.
type ShippingRates struct {
	Local  decimal.Decimal
	Remote decimal.Decimal
}

func DefaultShippingRates() ShippingRates {
	return ShippingRates{Local: decimal.NewFromInt(100), Remote: decimal.NewFromInt(200)}
}

// MetroTable maps a normalized district name to the metro group it belongs to.
// Districts in the same group are charged the local fee.
type MetroTable map[string]string

func normalizeDistrict(d string) string {
	return strings.ToLower(strings.TrimSpace(d))
}

func NewMetroTable(groups map[string][]string) MetroTable {
	t := MetroTable{}
	for group, districts := range groups {
		for _, d := range districts {
			if n := normalizeDistrict(d); n != "" {
				t[n] = group
			}
		}
	}
	return t
}

func DefaultMetroTable() MetroTable {
	return NewMetroTable(map[string][]string{
		"valley": {"Kathmandu", "Lalitpur", "Bhaktapur"},
	})
}

// SameZone reports whether two districts are charged the local fee.
func (m MetroTable) SameZone(a, b string) bool {
	na, nb := normalizeDistrict(a), normalizeDistrict(b)
	if na == "" || nb == "" {
		return false
	}
	if na == nb {
		return true
	}
	ga, okA := m[na]
	gb, okB := m[nb]
	return okA && okB && ga == gb
}

// PriceLine is everything the calculator needs to know about one order line.
type PriceLine struct {
	ProductID      uint64
	VendorID       uint64
	VendorDistrict string
	Quantity       int
	BasePrice      decimal.Decimal
	Discount       decimal.Decimal
	DiscountType   domain.DiscountType
	// VariantPrice is set for variant lines and replaces the product price.
	VariantPrice *decimal.Decimal
}

type Quote struct {
	UnitPrices     []decimal.Decimal
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingFee    decimal.Decimal
	ServiceCharge  decimal.Decimal
	Total          decimal.Decimal
	PromoCode      *string
}

type Calculator struct {
	rates ShippingRates
	metro MetroTable
	log   *zap.Logger
}

func NewCalculator(rates ShippingRates, metro MetroTable, log *zap.Logger) *Calculator {
	return &Calculator{rates: rates, metro: metro, log: log}
}

func (c *Calculator) UnitPrice(l PriceLine) decimal.Decimal {
	if l.VariantPrice != nil {
		return l.VariantPrice.Round(2)
	}
	price := l.BasePrice
	switch l.DiscountType {
	case domain.DiscountPercentage:
		price = price.Sub(price.Mul(l.Discount).Div(hundred))
	case domain.DiscountFlat:
		price = price.Sub(l.Discount)
	}
	if price.IsNegative() {
		c.log.Warn("discount exceeds base price, clamping unit price to zero",
			zap.Uint64("product_id", l.ProductID),
			zap.String("base_price", l.BasePrice.String()),
			zap.String("discount", l.Discount.String()),
			zap.String("discount_type", string(l.DiscountType)),
		)
		return decimal.Zero
	}
	return price.Round(2)
}

// ShippingFee charges once per distinct vendor district.
func (c *Calculator) ShippingFee(customerDistrict string, lines []PriceLine) (decimal.Decimal, error) {
	seen := map[string]bool{}
	var districts []string
	for _, l := range lines {
		d := normalizeDistrict(l.VendorDistrict)
		if d == "" {
			return decimal.Zero, domain.NotFound("district for vendor", l.VendorID)
		}
		if !seen[d] {
			seen[d] = true
			districts = append(districts, d)
		}
	}
	sort.Strings(districts)

	fee := decimal.Zero
	for _, d := range districts {
		if c.metro.SameZone(d, customerDistrict) {
			fee = fee.Add(c.rates.Local)
		} else {
			fee = fee.Add(c.rates.Remote)
		}
	}
	return fee, nil
}

// Quote prices a set of lines. promo must already have passed the validity and
// single-use checks; nil means no discount.
func (c *Calculator) Quote(customerDistrict string, lines []PriceLine, promo *domain.PromoCode, serviceCharge decimal.Decimal) (*Quote, error) {
	q := &Quote{
		UnitPrices:     make([]decimal.Decimal, len(lines)),
		Subtotal:       decimal.Zero,
		DiscountAmount: decimal.Zero,
		ServiceCharge:  serviceCharge.Round(2),
	}
	for i, l := range lines {
		unit := c.UnitPrice(l)
		q.UnitPrices[i] = unit
		q.Subtotal = q.Subtotal.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	fee, err := c.ShippingFee(customerDistrict, lines)
	if err != nil {
		return nil, err
	}
	q.ShippingFee = fee

	if promo != nil {
		base := q.Subtotal
		if promo.AppliesTo == domain.PromoShippingFee {
			base = q.ShippingFee
		}
		q.DiscountAmount = base.Mul(promo.DiscountPercentage).Div(hundred).Round(2)
		code := promo.Code
		q.PromoCode = &code
	}

	q.Total = q.Subtotal.Sub(q.DiscountAmount).Add(q.ShippingFee).Add(q.ServiceCharge).Round(2)
	return q, nil
}
