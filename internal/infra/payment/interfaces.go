package payment

import "order-fulfillment/internal/services"

var _ services.PaymentGateway = (*HMACGateway)(nil)

var (
	_ ProcessedStore = (*RedisProcessedStore)(nil)
	_ ProcessedStore = (*MemoryProcessedStore)(nil)
)
