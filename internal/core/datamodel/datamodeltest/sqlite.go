// Package datamodeltest opens throwaway databases carrying the full schema.
package datamodeltest

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/frahmantamala/marketplace/internal/core/datamodel"
)

// OpenSQLite returns an in-memory database with every table and partial
// unique index migrated. The pool holds one connection because each sqlite
// memory connection is its own database.
func OpenSQLite() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	if err := datamodel.Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// SQLX wraps the same connection pool for the sqlx read models.
func SQLX(db *gorm.DB) (*sqlx.DB, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return sqlx.NewDb(sqlDB, "sqlite3"), nil
}
