package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/bilim-app/bilim/internal/infrastructure/persistence/models"
)

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.UserModel{},
		&models.TransactionModel{},
		&models.EntitlementModel{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
