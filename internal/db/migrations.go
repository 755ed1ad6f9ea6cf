package db

import (
	"errors"

	"automc/client/internal/db/migration"

	"gorm.io/gorm"
)

// SyncSchema creates/updates tables and indexes from models. Table structure changes do not use versioned migrations.
func SyncSchema(db *gorm.DB) error {
	if db == nil {
		return errors.New("db is required")
	}
	if err := db.AutoMigrate(&JournalEntry{}, &BackendHistory{}); err != nil {
		return err
	}
	for _, stmt := range []string{
		`CREATE INDEX IF NOT EXISTS idx_journal_created_at ON journal(created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_journal_action_id ON journal(action_id);`,
		`CREATE INDEX IF NOT EXISTS idx_backend_history_last ON backend_history(last_connected_at DESC);`,
	} {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// MigrateUp syncs schema then runs the registered data migrations.
func MigrateUp(db *gorm.DB) error {
	if err := SyncSchema(db); err != nil {
		return err
	}
	migration.Init()
	return migration.RunAll(db)
}
