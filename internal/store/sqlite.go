// Package store archives finished experiment runs in SQLite so they can be
// listed and re-rendered after the fact.
package store

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open opens (or creates) the archive database and runs migrations.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive db %q: %w", dbPath, err)
	}

	if err := db.AutoMigrate(&Run{}, &RunEntry{}); err != nil {
		return nil, fmt.Errorf("failed to migrate archive db: %w", err)
	}

	return db, nil
}
