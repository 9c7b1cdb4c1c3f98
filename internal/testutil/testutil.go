// Package testutil opens throwaway databases for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Kerhoff/ShoplistBot/internal/config"
	"github.com/Kerhoff/ShoplistBot/internal/repository/sqlstore"
	"github.com/Kerhoff/ShoplistBot/pkg/logger"
)

// NewDatabase creates a migrated SQLite database in a temporary directory.
// It is closed when the test ends.
func NewDatabase(t testing.TB) *config.Database {
	t.Helper()

	db, err := config.NewDatabase("sqlite://"+filepath.Join(t.TempDir(), "test.db"), logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, db.Migrate())
	return db
}

// NewStore returns a store backed by a fresh database.
func NewStore(t testing.TB) *sqlstore.Store {
	t.Helper()
	return NewDatabase(t).Store()
}

// PostgresURLEnv names the variable holding a PostgreSQL URL for tests that
// need row locking across connections.
const PostgresURLEnv = "SHOPLIST_TEST_POSTGRES_URL"

// NewPostgresDatabase connects to the database named by PostgresURLEnv,
// migrates it and empties every table before and after the test. The test is
// skipped when the variable is unset.
func NewPostgresDatabase(t testing.TB) *config.Database {
	t.Helper()

	url := os.Getenv(PostgresURLEnv)
	if url == "" {
		t.Skipf("%s is not set", PostgresURLEnv)
	}

	db, err := config.NewDatabase(url, logger.Discard())
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	truncate := func() error {
		_, err := db.Exec(`TRUNCATE templates, trashed_items, archived_items, active_items, users, families RESTART IDENTITY CASCADE`)
		return err
	}
	require.NoError(t, truncate())
	t.Cleanup(func() {
		_ = truncate()
		_ = db.Close()
	})
	return db
}
