package db

import (
	"mobcash_portal/internal/domain" // Importing domain models

	"gorm.io/gorm" // GORM ORM library
)

// Migrate performs automatic migration for the portal's own tables.
// Everything else belongs to the MobCash backend.
func Migrate(db *gorm.DB) error {
	// AutoMigrate will create tables, missing foreign keys, constraints, columns and indexes
	return db.AutoMigrate(&domain.PortalSession{}, &domain.Submission{})
}
