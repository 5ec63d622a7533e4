package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/services-marketplace/internal/config"
)

func TestMigrateIsIdempotent(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite"))
	require.NoError(t, Migrate(ctx, db, "sqlite"))

	var n int
	require.NoError(t, db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name IN
		 ('users','refresh_tokens','service_categories','providers','service_listings','reviews','reservations')`).Scan(&n))
	assert.Equal(t, 7, n)
}

func TestForeignKeysEnforced(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()
	require.NoError(t, Migrate(ctx, db, "sqlite"))

	_, err = db.ExecContext(ctx,
		`INSERT INTO providers (user_id, company_name) VALUES (?, ?)`, 999, "ghost")
	assert.Error(t, err)
}

func TestMigrateUnknownDriver(t *testing.T) {
	db, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	defer db.Close()
	assert.Error(t, Migrate(context.Background(), db, "oracle"))
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(config.DBConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestMySQLDialectRendersEngine(t *testing.T) {
	stmt := dialects["mysql"].Replace(schema[0])
	assert.Contains(t, stmt, "AUTO_INCREMENT")
	assert.Contains(t, stmt, "ENGINE=InnoDB")
}
