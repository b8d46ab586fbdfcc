package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type OrderEventLine struct {
	ProductID uint64          `json:"productId"`
	VariantID *uint64         `json:"variantId,omitempty"`
	VendorID  uint64          `json:"vendorId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type OrderPlacedEvent struct {
	OrderID       uuid.UUID        `json:"orderId"`
	UserID        uint64           `json:"userId"`
	Lines         []OrderEventLine `json:"items"`
	TotalPrice    decimal.Decimal  `json:"totalPrice"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	Status        OrderStatus      `json:"status"`
	CreatedAt     time.Time        `json:"createdAt"`
}

type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID     `json:"orderId"`
	UserID         uint64        `json:"userId"`
	VendorIDs      []uint64      `json:"vendorIds"`
	PreviousStatus OrderStatus   `json:"previousStatus"`
	Status         OrderStatus   `json:"status"`
	PaymentStatus  PaymentStatus `json:"paymentStatus"`
	ChangedAt      time.Time     `json:"changedAt"`
}

func NewOrderPlacedEvent(o *Order) OrderPlacedEvent {
	lines := make([]OrderEventLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, OrderEventLine{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			VendorID:  l.VendorID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
		})
	}
	return OrderPlacedEvent{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Lines:         lines,
		TotalPrice:    o.TotalPrice,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		CreatedAt:     o.CreatedAt,
	}
}

func NewOrderStatusChangedEvent(o *Order, previous OrderStatus) OrderStatusChangedEvent {
	seen := map[uint64]bool{}
	var vendors []uint64
	for _, l := range o.Lines {
		if !seen[l.VendorID] {
			seen[l.VendorID] = true
			vendors = append(vendors, l.VendorID)
		}
	}
	return OrderStatusChangedEvent{
		OrderID:        o.ID,
		UserID:         o.UserID,
		VendorIDs:      vendors,
		PreviousStatus: previous,
		Status:         o.Status,
		PaymentStatus:  o.PaymentStatus,
		ChangedAt:      o.UpdatedAt,
	}
}
