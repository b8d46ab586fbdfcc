package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DiscountType string

const (
	DiscountNone       DiscountType = ""
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFlat       DiscountType = "FLAT"
)

type Vendor struct {
	ID       uint64 `json:"id" gorm:"primaryKey;autoIncrement"`
	Name     string `json:"name" gorm:"type:varchar(255);not null"`
	District string `json:"district" gorm:"type:varchar(128)"`
}

type Product struct {
	ID           uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	VendorID     uint64          `json:"vendorId" gorm:"not null;index"`
	Name         string          `json:"name" gorm:"type:varchar(255);not null"`
	BasePrice    decimal.Decimal `json:"basePrice" gorm:"type:decimal(12,2);not null"`
	Discount     decimal.Decimal `json:"discount" gorm:"type:decimal(12,2);not null;default:0"`
	DiscountType DiscountType    `json:"discountType" gorm:"type:varchar(16)"`
	HasVariants  bool            `json:"hasVariants" gorm:"not null;default:false"`
	Quantity     int             `json:"quantity" gorm:"not null;default:0"`
	Status       StockStatus     `json:"status" gorm:"type:varchar(16);not null;default:'OUT_OF_STOCK'"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

type Variant struct {
	ID        uint64          `json:"id" gorm:"primaryKey;autoIncrement"`
	ProductID uint64          `json:"productId" gorm:"not null;index"`
	Name      string          `json:"name" gorm:"type:varchar(255)"`
	BasePrice decimal.Decimal `json:"basePrice" gorm:"type:decimal(12,2);not null"`
	Quantity  int             `json:"quantity" gorm:"not null;default:0"`
	Status    StockStatus     `json:"status" gorm:"type:varchar(16);not null;default:'OUT_OF_STOCK'"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
