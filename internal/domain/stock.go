package domain

import "sort"

type StockStatus string

const (
	StockOutOfStock StockStatus = "OUT_OF_STOCK"
	StockLow        StockStatus = "LOW_STOCK"
	StockAvailable  StockStatus = "AVAILABLE"
)

const lowStockThreshold = 5

// DeriveStockStatus is the only way a stock status is produced.
func DeriveStockStatus(quantity int) StockStatus {
	switch {
	case quantity <= 0:
		return StockOutOfStock
	case quantity < lowStockThreshold:
		return StockLow
	default:
		return StockAvailable
	}
}

// StockKey identifies a stock-bearing row: the product itself when VariantID
// is zero, otherwise the variant.
type StockKey struct {
	ProductID uint64
	VariantID uint64
}

func (k StockKey) IsVariant() bool { return k.VariantID != 0 }

type StockUnit struct {
	Key      StockKey
	Quantity int
	Status   StockStatus
}

type StockLine struct {
	Key      StockKey
	Quantity int
}

// SortStockKeys orders keys products first, then variants, each by ascending
// id. Every locking path uses this order.
func SortStockKeys(keys []StockKey) {
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.IsVariant() != b.IsVariant() {
			return !a.IsVariant()
		}
		if a.IsVariant() {
			return a.VariantID < b.VariantID
		}
		return a.ProductID < b.ProductID
	})
}

// MergeStockLines sums quantities per key and returns them in lock order.
func MergeStockLines(lines []StockLine) []StockLine {
	totals := make(map[StockKey]int, len(lines))
	keys := make([]StockKey, 0, len(lines))
	for _, l := range lines {
		if _, ok := totals[l.Key]; !ok {
			keys = append(keys, l.Key)
		}
		totals[l.Key] += l.Quantity
	}
	SortStockKeys(keys)
	out := make([]StockLine, 0, len(keys))
	for _, k := range keys {
		out = append(out, StockLine{Key: k, Quantity: totals[k]})
	}
	return out
}
