package db

import (
	"database/sql"
	"path/filepath"
	"testing"
)

// NewTestDB opens a fresh database file under t.TempDir with the schema applied.
func NewTestDB(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := Open(filepath.Join(t.TempDir(), "test.sqlite3"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := EnsureSchema(conn); err != nil {
		t.Fatalf("applying schema: %v", err)
	}
	return conn
}
