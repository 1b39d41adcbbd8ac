package driver

import (
	"context"
	"fmt"
	"testing"
)

func TestNewDriver(t *testing.T) {
	tests := []struct {
		name    string
		dialect Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"invalid", Dialect("invalid"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			drv, err := New(tt.dialect)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if drv == nil {
				t.Error("expected driver, got nil")
			}
		})
	}
}

func TestParseDialect(t *testing.T) {
	tests := []struct {
		input   string
		want    Dialect
		wantErr bool
	}{
		{"sqlite", DialectSQLite, false},
		{"sqlite3", DialectSQLite, false},
		{"", DialectSQLite, false},
		{"postgres", DialectPostgres, false},
		{"postgresql", DialectPostgres, false},
		{"pg", DialectPostgres, false},
		{"mysql", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDialect(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// fakeSchemaFS serves migrations from a map for driver tests.
type fakeSchemaFS struct {
	files map[string]string
}

type fakeEntry struct{ name string }

func (e fakeEntry) Name() string { return e.name }
func (e fakeEntry) IsDir() bool  { return false }

func (f fakeSchemaFS) ReadDir(name string) ([]DirEntry, error) {
	var entries []DirEntry
	for k := range f.files {
		entries = append(entries, fakeEntry{name: k})
	}
	return entries, nil
}

func (f fakeSchemaFS) ReadFile(name string) ([]byte, error) {
	content, ok := f.files[name[len("schema/"):]]
	if !ok {
		return nil, fmt.Errorf("no such file: %s", name)
	}
	return []byte(content), nil
}

func openTestSQLite(t *testing.T) *SQLiteDriver {
	t.Helper()
	d := NewSQLite()
	if err := d.Open(":memory:"); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestMigrate_AppliesAndRecords(t *testing.T) {
	d := openTestSQLite(t)
	ctx := context.Background()

	fs := fakeSchemaFS{files: map[string]string{
		"test_001.sql": "CREATE TABLE widgets (id INTEGER PRIMARY KEY);",
	}}

	if err := d.Migrate(ctx, fs, "test"); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	var n int
	if err := d.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&n); err != nil {
		t.Errorf("widgets table missing: %v", err)
	}
	if err := d.QueryRow(ctx, "SELECT COUNT(*) FROM _migrations WHERE version = 1").Scan(&n); err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if n != 1 {
		t.Errorf("expected version 1 recorded once, got %d rows", n)
	}
}

func TestMigrate_FailureLeavesNothingHalfApplied(t *testing.T) {
	d := openTestSQLite(t)
	ctx := context.Background()

	// The second statement is invalid; the first must not survive the
	// failed migration.
	fs := fakeSchemaFS{files: map[string]string{
		"test_001.sql": "CREATE TABLE widgets (id INTEGER PRIMARY KEY);\nCREATE BOGUS;",
	}}

	if err := d.Migrate(ctx, fs, "test"); err == nil {
		t.Fatal("expected migration failure, got nil")
	}

	var n int
	if err := d.QueryRow(ctx, "SELECT COUNT(*) FROM widgets").Scan(&n); err == nil {
		t.Error("widgets table exists after failed migration")
	}
	if err := d.QueryRow(ctx, "SELECT COUNT(*) FROM _migrations").Scan(&n); err != nil {
		t.Fatalf("query _migrations: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no recorded versions after failure, got %d", n)
	}
}
