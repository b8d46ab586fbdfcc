package main

import (
	"order-fulfillment/internal/config"
	"order-fulfillment/internal/infra/cache"
	"order-fulfillment/internal/infra/kafka"
	"order-fulfillment/internal/infra/notify"
	"order-fulfillment/internal/infra/rabbitmq"
	"order-fulfillment/internal/services"

	redisv8 "github.com/go-redis/redis/v8"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type redisClients struct {
	orders   *redisv8.Client
	payments *redis.Client
}

func connectRedis(cfg config.Redis, log *zap.Logger) *redisClients {
	orders, err := cache.NewOrderCache(cfg, log)
	if err != nil {
		log.Fatal("redis: order cache", zap.Error(err))
	}
	payments, err := cache.NewPaymentStore(cfg, log)
	if err != nil {
		_ = orders.Close()
		log.Fatal("redis: payment store", zap.Error(err))
	}
	return &redisClients{orders: orders, payments: payments}
}

func (c *redisClients) Close() {
	_ = c.orders.Close()
	_ = c.payments.Close()
}

// buildNotifier picks the event backend. The returned func releases its
// connection.
func buildNotifier(cfg config.Notifier, log *zap.Logger) (services.Notifier, func()) {
	switch cfg.Backend {
	case "rabbitmq":
		publisher, err := rabbitmq.NewPublisher(cfg.RabbitURL, cfg.RabbitExchange, log)
		if err != nil {
			log.Fatal("failed to init publisher", zap.Error(err))
		}
		return rabbitmq.NewNotifier(publisher), publisher.Close
	case "kafka":
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic)
		log.Info("kafka producer ready", zap.Strings("brokers", cfg.KafkaBrokers), zap.String("topic", cfg.KafkaTopic))
		return kafka.NewNotifier(producer), func() {
			if err := producer.Close(); err != nil {
				log.Warn("failed to close kafka producer", zap.Error(err))
			}
		}
	default:
		return notify.NewLogNotifier(log), func() {}
	}
}
