package rabbitmq

import (
	"context"

	"order-fulfillment/internal/services"
)

type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

var (
	_ PublisherInterface = (*Publisher)(nil)
	_ services.Notifier  = (*Notifier)(nil)
)
