package database

import (
	"fmt"
	"log"

	"gorm.io/gorm"
)

// MigrateDB runs AutoMigrate across every model this process owns.
// Adapted from the teacher's pkg/database/migrate.go — the original
// returned AutoMigrate's error bare; this version wraps it with the
// failing model count so a migration failure is legible in logs
// alongside the open/close errors client.go and producer init already
// wrap.
func MigrateDB(db *gorm.DB, models ...interface{}) error {
	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("automigrate %d models: %w", len(models), err)
	}
	log.Printf("Database migrated successfully with %d models", len(models))
	return nil
}