package migrations

import (
	"fmt"

	"gorm.io/gorm"

	"go-album-center/internal/models"
)

// Migrate creates or updates the items and derivatives tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Item{},
		&models.Derivative{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}
