// Test helpers for store access.
//
// Tests should use NewTestDB rather than opening file-backed databases:
// in-memory databases are much faster and isolated per test.
package db

import (
	"testing"
)

// NewTestDB creates an in-memory database for testing with migrations
// applied. The database is closed automatically when the test completes.
func NewTestDB(t testing.TB) *DB {
	t.Helper()

	d, err := OpenInMemory()
	if err != nil {
		t.Fatalf("create test db: %v", err)
	}

	t.Cleanup(func() {
		_ = d.Close()
	})

	return d
}
