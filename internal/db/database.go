package db

import (
	"fmt"

	"settlement-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connect opens the Postgres connection and migrates the settlement schema.
func Connect(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	database, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		PrepareStmt:            true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}

	logrus.Info("Database connected and migrated")
	return database, nil
}

// Migrate runs the schema migration. Split out of Connect so tests can run
// it against their own database.
func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.Merchant{},
		&models.Payment{},
		&models.Transfer{},
		&models.Payout{},
	); err != nil {
		return fmt.Errorf("auto migrate failed: %w", err)
	}
	return nil
}
