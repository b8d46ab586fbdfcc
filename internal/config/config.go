package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type Config struct {
	Port     string
	Env      string
	DB       DB
	Redis    Redis
	Notifier Notifier
	Gateways []Gateway
	Payment  Payment
	Stock    Stock
	Shipping Shipping
}

type DB struct {
	Driver      string
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	SSLMode     string
	LockTimeout time.Duration
}

type Redis struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

type Notifier struct {
	Backend        string
	RabbitURL      string
	RabbitExchange string
	KafkaBrokers   []string
	KafkaTopic     string
}

// Gateway is one online payment provider; Method is the payment method name
// (ESEWA, KHALTI) it serves.
type Gateway struct {
	Method       string
	MerchantCode string
	Secret       string
	PaymentURL   string
	StatusURL    string
	SuccessURL   string
	FailureURL   string
}

type Payment struct {
	Timeout      time.Duration
	MaxRetries   uint64
	ProcessedTTL time.Duration
}

type Stock struct {
	Reservation    string
	ReservationTTL time.Duration
	SweepInterval  time.Duration
	LockRetries    uint64
}

type Shipping struct {
	LocalFee    decimal.Decimal
	RemoteFee   decimal.Decimal
	MetroGroups map[string][]string
}

// gatewayPrefixes lists the providers that may be configured. A provider is
// enabled when its MERCHANT_CODE is set.
var gatewayPrefixes = []string{"ESEWA", "KHALTI"}

func Load(log *zap.Logger) *Config {
	cfg := &Config{
		Port: getEnvDefault("APP_PORT", "8080"),
		Env:  getEnvDefault("ENV", "production"),
		DB: DB{
			Driver:      getEnvDefault("DB_DRIVER", "mysql"),
			LockTimeout: durationDefault("DB_LOCK_TIMEOUT", 5*time.Second, log),
		},
		Redis: Redis{
			Enabled: getEnvDefault("REDIS_ENABLED", "false") == "true",
		},
		Notifier: Notifier{
			Backend: getEnvDefault("NOTIFIER", "log"),
		},
		Payment: Payment{
			Timeout:      durationDefault("PAYMENT_TIMEOUT", 5*time.Second, log),
			MaxRetries:   uint64(atoiDefault("PAYMENT_MAX_RETRIES", 3, log)),
			ProcessedTTL: durationDefault("PAYMENT_PROCESSED_TTL", 72*time.Hour, log),
		},
		Stock: Stock{
			Reservation:    getEnvDefault("STOCK_RESERVATION", "none"),
			ReservationTTL: durationDefault("STOCK_RESERVATION_TTL", 15*time.Minute, log),
			SweepInterval:  durationDefault("STOCK_RESERVATION_SWEEP", time.Minute, log),
			LockRetries:    uint64(atoiDefault("LOCK_RETRIES", 3, log)),
		},
		Shipping: Shipping{
			LocalFee:    decimalDefault("SHIPPING_LOCAL_FEE", decimal.NewFromInt(100), log),
			RemoteFee:   decimalDefault("SHIPPING_REMOTE_FEE", decimal.NewFromInt(200), log),
			MetroGroups: parseMetroGroups(getEnvDefault("SHIPPING_METRO_GROUPS", "valley:Kathmandu,Lalitpur,Bhaktapur")),
		},
	}

	if cfg.DB.Driver != "memory" {
		cfg.DB.Host = getEnv("DB_HOST", log)
		cfg.DB.Port = getEnv("DB_PORT", log)
		cfg.DB.User = getEnv("DB_USER", log)
		cfg.DB.Password = getEnv("DB_PASSWORD", log)
		cfg.DB.Name = getEnv("DB_NAME", log)
		cfg.DB.SSLMode = getEnvDefault("DB_SSLMODE", "disable")
	}

	if cfg.Redis.Enabled {
		cfg.Redis.Addr = getEnv("REDIS_ADDR", log)
		cfg.Redis.Password = os.Getenv("REDIS_PASSWORD")
		cfg.Redis.DB = atoiDefault("REDIS_DB", 0, log)
	}

	switch cfg.Notifier.Backend {
	case "rabbitmq":
		cfg.Notifier.RabbitURL = getEnv("RABBITMQ_URL", log)
		cfg.Notifier.RabbitExchange = getEnvDefault("RABBITMQ_EXCHANGE", "order.exchange")
	case "kafka":
		cfg.Notifier.KafkaBrokers = splitAndTrim(getEnv("KAFKA_BROKERS", log))
		cfg.Notifier.KafkaTopic = getEnvDefault("KAFKA_TOPIC", "order-events")
	}

	for _, prefix := range gatewayPrefixes {
		code := os.Getenv(prefix + "_MERCHANT_CODE")
		if code == "" {
			continue
		}
		cfg.Gateways = append(cfg.Gateways, Gateway{
			Method:       prefix,
			MerchantCode: code,
			Secret:       getEnv(prefix+"_SECRET", log),
			PaymentURL:   getEnv(prefix+"_PAYMENT_URL", log),
			StatusURL:    getEnv(prefix+"_STATUS_URL", log),
			SuccessURL:   getEnv(prefix+"_SUCCESS_URL", log),
			FailureURL:   getEnv(prefix+"_FAILURE_URL", log),
		})
	}

	return cfg
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func getEnv(key string, log *zap.Logger) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	log.Error("required environment variable is not set", zap.String("key", key))
	panic("missing required environment variable: " + key)
}

func getEnvDefault(key, def string) string {
	if val, exists := os.LookupEnv(key); exists && val != "" {
		return val
	}
	return def
}

func atoiDefault(key string, def int, log *zap.Logger) int {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		log.Warn("invalid integer in environment, using default", zap.String("key", key), zap.Int("default", def))
		return def
	}
	return n
}

func durationDefault(key string, def time.Duration, log *zap.Logger) time.Duration {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		log.Warn("invalid duration in environment, using default", zap.String("key", key), zap.Duration("default", def))
		return def
	}
	return d
}

func decimalDefault(key string, def decimal.Decimal, log *zap.Logger) decimal.Decimal {
	s, ok := os.LookupEnv(key)
	if !ok || s == "" {
		return def
	}
	d, err := decimal.NewFromString(s)
	if err != nil || d.IsNegative() {
		log.Warn("invalid amount in environment, using default", zap.String("key", key), zap.String("default", def.String()))
		return def
	}
	return d
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := []string{}
	for _, p := range strings.Split(s, ",") {
		pt := strings.TrimSpace(p)
		if pt != "" {
			parts = append(parts, pt)
		}
	}
	return parts
}

// parseMetroGroups reads "group:d1,d2;group2:d3".
func parseMetroGroups(s string) map[string][]string {
	out := map[string][]string{}
	for i, chunk := range strings.Split(s, ";") {
		chunk = strings.TrimSpace(chunk)
		if chunk == "" {
			continue
		}
		name, list, found := strings.Cut(chunk, ":")
		if !found {
			list = name
			name = fmt.Sprintf("group%d", i+1)
		}
		if districts := splitAndTrim(list); len(districts) > 0 {
			out[strings.TrimSpace(name)] = districts
		}
	}
	return out
}
