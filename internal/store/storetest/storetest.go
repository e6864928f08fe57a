// Package storetest provides a migrated SQLite store for package tests.
package storetest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	gormlogger "gorm.io/gorm/logger"

	"github.com/feral-file/staking-indexer/internal/store"
)

// NewSQLite opens a fresh migrated SQLite store that is closed when the test ends
func NewSQLite(t testing.TB) store.Store {
	t.Helper()

	db, err := store.Open(store.DriverSQLite, filepath.Join(t.TempDir(), "test.db"), gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, store.Migrate(db))

	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	return store.NewStore(db)
}
