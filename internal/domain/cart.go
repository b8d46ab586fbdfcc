package domain

type Cart struct {
	ID     uint64     `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID uint64     `json:"userId" gorm:"not null;uniqueIndex"`
	Items  []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
}

type CartItem struct {
	ID        uint64  `json:"id" gorm:"primaryKey;autoIncrement"`
	CartID    uint64  `json:"cartId" gorm:"not null;index"`
	ProductID uint64  `json:"productId" gorm:"not null;index"`
	VariantID *uint64 `json:"variantId,omitempty" gorm:"index"`
	Quantity  int     `json:"quantity" gorm:"not null"`
}

func (i CartItem) StockKey() StockKey {
	k := StockKey{ProductID: i.ProductID}
	if i.VariantID != nil {
		k.VariantID = *i.VariantID
	}
	return k
}
