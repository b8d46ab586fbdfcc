package services

import (
	"context"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/repository"

	"go.uber.org/zap"
)

// StockLedger is the only code that changes product or variant quantities.
type StockLedger struct {
	log *zap.Logger
}

func NewStockLedger(log *zap.Logger) *StockLedger {
	return &StockLedger{log: log}
}

func stockKeys(lines []domain.StockLine) []domain.StockKey {
	keys := make([]domain.StockKey, 0, len(lines))
	for _, l := range lines {
		keys = append(keys, l.Key)
	}
	return keys
}

func stockNotFound(k domain.StockKey) error {
	if k.IsVariant() {
		return domain.NotFound("variant", k.VariantID)
	}
	return domain.NotFound("product", k.ProductID)
}

func checkAvailable(units map[domain.StockKey]domain.StockUnit, lines []domain.StockLine) error {
	for _, l := range lines {
		unit, ok := units[l.Key]
		if !ok {
			return stockNotFound(l.Key)
		}
		if unit.Quantity < l.Quantity {
			return domain.InsufficientStock(l.Key, unit.Quantity, l.Quantity)
		}
	}
	return nil
}

// ValidateAvailability is an unlocked pre-check against committed stock. It
// lets order creation fail before any pricing work; Commit repeats the check
// under lock.
func (l *StockLedger) ValidateAvailability(ctx context.Context, stock repository.StockRepository, lines []domain.StockLine) error {
	merged := domain.MergeStockLines(lines)
	units, err := stock.Get(ctx, stockKeys(merged))
	if err != nil {
		return err
	}
	return checkAvailable(units, merged)
}

// Commit locks every stock row in key order, checks quantities and deducts
// them. Units that reach zero are dropped from other users' carts. It must
// run inside tx.
func (l *StockLedger) Commit(ctx context.Context, tx *repository.Repository, userID uint64, lines []domain.StockLine) error {
	merged := domain.MergeStockLines(lines)
	units, err := tx.Stock.GetForUpdate(ctx, stockKeys(merged))
	if err != nil {
		return err
	}
	if err := checkAvailable(units, merged); err != nil {
		return err
	}

	for _, line := range merged {
		unit := units[line.Key]
		unit.Quantity -= line.Quantity
		unit.Status = domain.DeriveStockStatus(unit.Quantity)
		if err := tx.Stock.Save(ctx, unit); err != nil {
			return err
		}
		if unit.Quantity > 0 {
			continue
		}
		removed, err := tx.Carts.RemoveStockItems(ctx, line.Key, userID)
		if err != nil {
			return err
		}
		l.log.Info("stock unit sold out",
			zap.Uint64("product_id", line.Key.ProductID),
			zap.Uint64("variant_id", line.Key.VariantID),
			zap.Int64("cart_items_removed", removed),
		)
	}
	return nil
}

// Restore gives back exactly the quantities in lines. A unit that no longer
// exists is skipped.
func (l *StockLedger) Restore(ctx context.Context, tx *repository.Repository, lines []domain.StockLine) error {
	merged := domain.MergeStockLines(lines)
	units, err := tx.Stock.GetForUpdate(ctx, stockKeys(merged))
	if err != nil {
		return err
	}
	for _, line := range merged {
		unit, ok := units[line.Key]
		if !ok {
			l.log.Warn("cannot restore stock for missing unit",
				zap.Uint64("product_id", line.Key.ProductID),
				zap.Uint64("variant_id", line.Key.VariantID),
				zap.Int("quantity", line.Quantity),
			)
			continue
		}
		unit.Quantity += line.Quantity
		unit.Status = domain.DeriveStockStatus(unit.Quantity)
		if err := tx.Stock.Save(ctx, unit); err != nil {
			return err
		}
	}
	return nil
}
