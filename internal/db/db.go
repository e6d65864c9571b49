// Package db opens the Postgres connection and keeps the schema migrated.
package db

import (
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/CodeEzard/vericred/internal/models"
)

// Connect opens a pooled Postgres connection.
func Connect(dsn string) (*gorm.DB, error) {
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connection to db failed: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB from GORM: %w", err)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return gdb, nil
}

// Migrate creates or updates the tables for all persisted entities.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.Account{},
		&models.Organization{},
		&models.Student{},
		&models.LegacyCredential{},
		&models.Credential{},
	)
}
