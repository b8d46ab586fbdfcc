package notify

import (
	"context"

	"order-fulfillment/internal/domain"

	"go.uber.org/zap"
)

// LogNotifier writes order events to the log. It backs NOTIFIER=log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: log.Named("notify")}
}

func (n *LogNotifier) NotifyOrderPlaced(_ context.Context, order *domain.Order) error {
	evt := domain.NewOrderPlacedEvent(order)
	n.log.Info("order placed",
		zap.String("order_id", evt.OrderID.String()),
		zap.Uint64("user_id", evt.UserID),
		zap.Int("items", len(evt.Lines)),
		zap.String("total", evt.TotalPrice.String()),
		zap.String("status", string(evt.Status)),
	)
	return nil
}

func (n *LogNotifier) NotifyStatusChanged(_ context.Context, order *domain.Order, previous domain.OrderStatus) error {
	evt := domain.NewOrderStatusChangedEvent(order, previous)
	n.log.Info("order status changed",
		zap.String("order_id", evt.OrderID.String()),
		zap.String("from", string(evt.PreviousStatus)),
		zap.String("to", string(evt.Status)),
		zap.Uint64s("vendor_ids", evt.VendorIDs),
	)
	return nil
}
