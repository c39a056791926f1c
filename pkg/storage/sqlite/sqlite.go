// Package sqlite provides a SQLite-backed storage driver using gorm with
// the pure-Go glebarez driver, so the binary builds without cgo.
package sqlite

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reveriehq/reverie/pkg/storage/gormstore"
)

// Driver implements storage.Driver backed by a SQLite database file.
type Driver struct {
	*gormstore.Store
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
// The path ":memory:" opens an in-process database, useful for tests.
func New(dbPath string) (*Driver, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating sqlite directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	store, err := gormstore.New(db)
	if err != nil {
		return nil, err
	}

	return &Driver{Store: store}, nil
}
