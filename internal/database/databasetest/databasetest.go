// Package databasetest opens the Postgres database used by integration tests.
// Tests are skipped when TEST_DATABASE_DSN (keyword/value form) is not set.
//
// Every test package gets its own schema so `go test ./...` can run packages in parallel.
package databasetest

import (
	"fmt"
	"os"
	"sync"
	"testing"

	"kiosk-backend/internal/config"
	"kiosk-backend/internal/database"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var (
	db      *gorm.DB
	openErr error
	once    sync.Once
)

// Open returns a migrated database with every kiosk table emptied. schema names
// the calling package, e.g. "orders".
func Open(t *testing.T, schema string) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set, skipping database test")
	}

	once.Do(func() {
		db, openErr = open(dsn, "kiosk_test_"+schema)
	})
	require.NoError(t, openErr)

	Reset(t, db)
	return db
}

func open(dsn, schema string) (*gorm.DB, error) {
	bootstrap, err := database.Open(&config.Config{DatabaseDSN: dsn, DBMaxOpenConns: 1, DBMaxIdleConns: 1})
	if err != nil {
		return nil, err
	}
	if err := bootstrap.Exec(fmt.Sprintf(`CREATE SCHEMA IF NOT EXISTS %q`, schema)).Error; err != nil {
		return nil, err
	}
	if err := database.Close(bootstrap); err != nil {
		return nil, err
	}

	conn, err := database.Open(&config.Config{
		DatabaseDSN:    dsn + " search_path=" + schema,
		DBMaxOpenConns: 10,
		DBMaxIdleConns: 5,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func Reset(t *testing.T, db *gorm.DB) {
	t.Helper()
	err := db.Exec(`TRUNCATE order_items, orders, product_ingredients, products, ingredients, employees, audit_logs RESTART IDENTITY CASCADE`).Error
	require.NoError(t, err)
}
