// Package testutil provides test utilities for database setup.
package testutil

import (
	"database/sql"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/vgrid/internal/datasource"
)

// NewTestDB creates an in-memory SQLite database holding the records table.
// The database is closed when the test ends.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	// Every connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	_, err = db.Exec(datasource.Schema)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}
