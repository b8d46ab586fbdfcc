package database

import (
	"fmt"
	"math"

	"order-fulfillment/internal/config"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

// MySQLDSN sets innodb_lock_wait_timeout per session, since MySQL has no
// transaction-scoped equivalent of lock_timeout.
func MySQLDSN(cfg config.DB) string {
	lockWait := int(math.Ceil(cfg.LockTimeout.Seconds()))
	if lockWait < 1 {
		lockWait = 1
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC&innodb_lock_wait_timeout=%d",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, lockWait)
}

func openMySQL(cfg config.DB, gcfg *gorm.Config) (*gorm.DB, error) {
	return gorm.Open(mysql.Open(MySQLDSN(cfg)), gcfg)
}
