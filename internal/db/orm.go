package db

import (
	"fmt"

	"tenf/portal/internal/logging"
	gormModels "tenf/portal/internal/models/gorm"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitPostgresORM opens the GORM connection used by the relational repositories.
func InitPostgresORM(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	logging.Info("Connected to Postgres via GORM")
	return db, nil
}

// AutoMigrate creates or updates every portal table.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(gormModels.AllModels()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
