// Package testutil provides an in-memory datastore with the production
// schema for repository and handler tests.
package testutil

import (
	"context"
	"database/sql"
	"testing"

	"github.com/iliyamo/services-marketplace/internal/database"
)

// NewDB opens a fresh in-memory SQLite database, migrates it and closes
// it when the test ends.
func NewDB(t testing.TB) *sql.DB {
	t.Helper()
	db, err := database.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := database.Migrate(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
