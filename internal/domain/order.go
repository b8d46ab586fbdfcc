package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusConfirmed OrderStatus = "CONFIRMED"
	StatusDelayed   OrderStatus = "DELAYED"
	StatusShipped   OrderStatus = "SHIPPED"
	StatusDelivered OrderStatus = "DELIVERED"
	StatusCancelled OrderStatus = "CANCELLED"
	StatusReturned  OrderStatus = "RETURNED"
)

type PaymentMethod string

const (
	PaymentCashOnDelivery PaymentMethod = "CASH_ON_DELIVERY"
	PaymentESewa          PaymentMethod = "ESEWA"
	PaymentKhalti         PaymentMethod = "KHALTI"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCashOnDelivery, PaymentESewa, PaymentKhalti:
		return true
	}
	return false
}

func (m PaymentMethod) Online() bool {
	return m.Valid() && m != PaymentCashOnDelivery
}

type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "UNPAID"
	PaymentPaid   PaymentStatus = "PAID"
)

// OrderSource records where the order lines came from so that a later
// payment reconciliation knows whether the cart must be cleared.
type OrderSource string

const (
	SourceCart   OrderSource = "CART"
	SourceBuyNow OrderSource = "BUY_NOW"
)

// MaxLineQuantity bounds a single order line.
const MaxLineQuantity = 100

type Order struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID          uint64          `json:"userId" gorm:"not null;index"`
	Lines           []OrderLine     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress AddressSnapshot `json:"shippingAddress" gorm:"embedded;embeddedPrefix:ship_"`
	Subtotal        decimal.Decimal `json:"subtotal" gorm:"type:decimal(12,2);not null"`
	DiscountAmount  decimal.Decimal `json:"discountAmount" gorm:"type:decimal(12,2);not null"`
	ShippingFee     decimal.Decimal `json:"shippingFee" gorm:"type:decimal(12,2);not null"`
	ServiceCharge   decimal.Decimal `json:"serviceCharge" gorm:"type:decimal(12,2);not null"`
	TotalPrice      decimal.Decimal `json:"totalPrice" gorm:"type:decimal(12,2);not null"`
	PromoCode       *string         `json:"appliedPromoCode" gorm:"type:varchar(64);index"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod" gorm:"type:varchar(32);not null"`
	PaymentStatus   PaymentStatus   `json:"paymentStatus" gorm:"type:varchar(16);not null"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(16);not null;index"`
	Source          OrderSource     `json:"source" gorm:"type:varchar(16);not null"`

	TransactionID         *string `json:"transactionId,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	ExternalTransactionID *string `json:"externalTransactionId,omitempty" gorm:"type:varchar(128)"`

	StockCommitted bool       `json:"-" gorm:"not null;default:false"`
	ReservedUntil  *time.Time `json:"-" gorm:"index"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type OrderLine struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID       `json:"-" gorm:"type:char(36);not null;index"`
	ProductID uint64          `json:"productId" gorm:"not null;index"`
	VariantID *uint64         `json:"variantId,omitempty" gorm:"index"`
	VendorID  uint64          `json:"vendorId" gorm:"not null;index"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	UnitPrice decimal.Decimal `json:"unitPrice" gorm:"type:decimal(12,2);not null"`
	LineTotal decimal.Decimal `json:"lineTotal" gorm:"type:decimal(12,2);not null"`
}

func (l OrderLine) StockKey() StockKey {
	k := StockKey{ProductID: l.ProductID}
	if l.VariantID != nil {
		k.VariantID = *l.VariantID
	}
	return k
}

// StockLines returns the stock movements the order stands for.
func (o *Order) StockLines() []StockLine {
	out := make([]StockLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		out = append(out, StockLine{Key: l.StockKey(), Quantity: l.Quantity})
	}
	return out
}

func InitialStatus(m PaymentMethod) OrderStatus {
	if m == PaymentCashOnDelivery {
		return StatusConfirmed
	}
	return StatusPending
}

// Cancellable reports whether the owner may still cancel the order.
func (s OrderStatus) Cancellable() bool {
	return s != StatusDelivered && s != StatusCancelled && s != StatusReturned
}

func ParseOrderStatus(s string) (OrderStatus, bool) {
	st := OrderStatus(s)
	switch st {
	case StatusPending, StatusConfirmed, StatusDelayed, StatusShipped,
		StatusDelivered, StatusCancelled, StatusReturned:
		return st, true
	}
	return "", false
}
