package http

import (
	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/services"

	"github.com/shopspring/decimal"
)

type AddressRequest struct {
	Province   string `json:"province"`
	District   string `json:"district"`
	City       string `json:"city"`
	StreetLine string `json:"streetLine"`
	Landmark   string `json:"landmark"`
}

type CreateOrderRequest struct {
	ShippingAddress AddressRequest   `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod" binding:"required"`
	IsBuyNow        bool             `json:"isBuyNow"`
	ProductID       *uint64          `json:"productId"`
	VariantID       *uint64          `json:"variantId"`
	Quantity        *int             `json:"quantity" binding:"omitempty,min=1,max=100"`
	PromoCode       *string          `json:"promoCode"`
	ServiceCharge   *decimal.Decimal `json:"serviceCharge"`
}

func (r CreateOrderRequest) toService() services.CreateOrderRequest {
	return services.CreateOrderRequest{
		ShippingAddress: domain.AddressSnapshot{
			Province:   r.ShippingAddress.Province,
			District:   r.ShippingAddress.District,
			City:       r.ShippingAddress.City,
			StreetLine: r.ShippingAddress.StreetLine,
			Landmark:   r.ShippingAddress.Landmark,
		},
		PaymentMethod: domain.PaymentMethod(r.PaymentMethod),
		IsBuyNow:      r.IsBuyNow,
		ProductID:     r.ProductID,
		VariantID:     r.VariantID,
		Quantity:      r.Quantity,
		PromoCode:     r.PromoCode,
		ServiceCharge: r.ServiceCharge,
	}
}

type CreateOrderResponse struct {
	Order       *domain.Order              `json:"order"`
	RedirectURL string                     `json:"redirectUrl,omitempty"`
	Payment     *domain.RedirectDescriptor `json:"payment,omitempty"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

type OrderListResponse struct {
	Items []domain.Order `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
	Limit int            `json:"limit"`
}

type ErrorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	// Order is set when the operation failed after the order was persisted.
	Order *domain.Order `json:"order,omitempty"`
}
