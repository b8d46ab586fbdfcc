package database

import (
	"testing"
	"time"

	"order-fulfillment/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestDSN(t *testing.T) {
	cfg := config.DB{
		Host: "db", Port: "3306", User: "shop", Password: "pw", Name: "orders",
		SSLMode: "disable", LockTimeout: 1500 * time.Millisecond,
	}
	assert.Equal(t,
		"shop:pw@tcp(db:3306)/orders?charset=utf8mb4&parseTime=True&loc=UTC&innodb_lock_wait_timeout=2",
		MySQLDSN(cfg))

	cfg.LockTimeout = 0
	assert.Contains(t, MySQLDSN(cfg), "innodb_lock_wait_timeout=1")

	cfg.Port = "5432"
	assert.Equal(t,
		"host=db port=5432 user=shop password=pw dbname=orders sslmode=disable TimeZone=UTC",
		PostgresDSN(cfg))
}

func TestConnect_UnknownDriver(t *testing.T) {
	_, err := Connect(config.DB{Driver: "sqlite"}, zap.NewNop())
	assert.Error(t, err)
}
