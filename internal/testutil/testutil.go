// Package testutil provides shared helpers for tests: an in-memory
// database with the full schema applied, and hand-rolled repository
// mocks.
package testutil

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/costwatch/costwatch/internal/repository/sqlite"
	"github.com/costwatch/costwatch/migrations"
)

// NewTestDB opens an in-memory database with all migrations applied
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := sqlite.RunMigrations(db, migrations.GetFS()); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// CleanupDB closes the test database
func CleanupDB(db *sql.DB) {
	if db != nil {
		db.Close()
	}
}
