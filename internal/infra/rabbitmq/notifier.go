package rabbitmq

import (
	"context"

	"order-fulfillment/internal/domain"
)

const (
	PatternOrderPlaced        = "order.placed"
	PatternOrderStatusChanged = "order.status_changed"
)

// Notifier publishes order events to the topic exchange.
type Notifier struct {
	publisher PublisherInterface
}

func NewNotifier(publisher PublisherInterface) *Notifier {
	return &Notifier{publisher: publisher}
}

func (n *Notifier) NotifyOrderPlaced(ctx context.Context, order *domain.Order) error {
	return n.publisher.Publish(ctx, PatternOrderPlaced, domain.NewOrderPlacedEvent(order))
}

func (n *Notifier) NotifyStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	return n.publisher.Publish(ctx, PatternOrderStatusChanged, domain.NewOrderStatusChangedEvent(order, previous))
}
