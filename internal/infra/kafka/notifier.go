package kafka

import (
	"context"

	"order-fulfillment/internal/domain"
	"order-fulfillment/internal/services"
)

type ProducerInterface interface {
	Publish(ctx context.Context, key string, event any) error
}

var (
	_ ProducerInterface = (*Producer)(nil)
	_ services.Notifier = (*Notifier)(nil)
)

const (
	EventOrderPlaced        = "OrderPlaced"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// Event is the value written to the topic.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type Notifier struct {
	producer ProducerInterface
}

func NewNotifier(producer ProducerInterface) *Notifier {
	return &Notifier{producer: producer}
}

func (n *Notifier) NotifyOrderPlaced(ctx context.Context, order *domain.Order) error {
	return n.producer.Publish(ctx, order.ID.String(), Event{
		Type: EventOrderPlaced,
		Data: domain.NewOrderPlacedEvent(order),
	})
}

func (n *Notifier) NotifyStatusChanged(ctx context.Context, order *domain.Order, previous domain.OrderStatus) error {
	return n.producer.Publish(ctx, order.ID.String(), Event{
		Type: EventOrderStatusChanged,
		Data: domain.NewOrderStatusChangedEvent(order, previous),
	})
}
