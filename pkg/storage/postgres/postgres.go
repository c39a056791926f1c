// Package postgres provides a Postgres-backed storage driver using gorm.
package postgres

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/reveriehq/reverie/pkg/storage/gormstore"
)

// Driver implements storage.Driver backed by a Postgres database.
type Driver struct {
	*gormstore.Store
}

// New connects to Postgres using the given DSN and runs migrations.
func New(dsn string) (*Driver, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}

	store, err := gormstore.New(db)
	if err != nil {
		return nil, err
	}

	return &Driver{Store: store}, nil
}
