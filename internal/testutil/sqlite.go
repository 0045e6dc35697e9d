// Package testutil holds helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"socialgraph/internal/store/sqlstore"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenSQLite opens a private in-memory SQLite database with the store
// tables migrated. The pool is pinned to one connection so the database
// lives as long as the test.
func OpenSQLite(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, sqlstore.Migrate(db))
	return db
}

// NewStore returns a sqlstore.Store over a fresh in-memory database.
func NewStore(t testing.TB) *sqlstore.Store {
	t.Helper()
	return sqlstore.New(OpenSQLite(t))
}
