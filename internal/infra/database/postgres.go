package database

import (
	"fmt"

	"order-fulfillment/internal/config"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func PostgresDSN(cfg config.DB) string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)
}

func openPostgres(cfg config.DB, gcfg *gorm.Config) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(PostgresDSN(cfg)), gcfg)
}
