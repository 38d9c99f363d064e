package db

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"    // MySQL driver for GORM
	"gorm.io/driver/postgres" // PostgreSQL driver for GORM
	"gorm.io/gorm"            // GORM ORM library
	"gorm.io/gorm/logger"     // GORM logger

	"mobcash_portal/internal/config" // Portal configuration
)

// Open connects to the portal database with the configured driver
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN()) // PostgreSQL
	case "mysql", "":
		dialector = mysql.Open(cfg.DSN()) // MySQL, the default
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	gcfg := &gorm.Config{}
	if cfg.IsProd {
		gcfg.Logger = logger.Default.LogMode(logger.Error) // Only errors in production
	}
	db, err := gorm.Open(dialector, gcfg) // Open a connection to the database
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(20)                 // Bound the pool
	sqlDB.SetConnMaxIdleTime(5 * time.Minute) // Recycle idle connections
	return db, nil
}
