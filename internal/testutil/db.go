// Package testutil opens throwaway databases for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Skotchmaster/shop_backend/internal/models"
	"github.com/Skotchmaster/shop_backend/pkg/db"
)

// NewDB returns a migrated in-memory SQLite database private to t.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	gdb, err := db.Open(context.Background(), db.Options{
		Driver:   "sqlite",
		DSN:      ":memory:",
		LogLevel: logger.Silent,
	})
	require.NoError(t, err)
	require.NoError(t, gdb.AutoMigrate(models.All()...))
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}
