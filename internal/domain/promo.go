package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type PromoTarget string

const (
	PromoLineTotal   PromoTarget = "LINE_TOTAL"
	PromoShippingFee PromoTarget = "SHIPPING_FEE"
)

type PromoCode struct {
	Code               string          `json:"code" gorm:"type:varchar(64);primaryKey"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage" gorm:"type:decimal(5,2);not null"`
	AppliesTo          PromoTarget     `json:"appliesTo" gorm:"type:varchar(16);not null"`
	Active             bool            `json:"active" gorm:"not null;default:true"`
	ValidFrom          *time.Time      `json:"validFrom,omitempty"`
	ValidUntil         *time.Time      `json:"validUntil,omitempty"`
}

func (p *PromoCode) ValidAt(now time.Time) bool {
	if p == nil || !p.Active {
		return false
	}
	if p.ValidFrom != nil && now.Before(*p.ValidFrom) {
		return false
	}
	if p.ValidUntil != nil && now.After(*p.ValidUntil) {
		return false
	}
	return true
}
