package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func TestOpen(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer db.Close()

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %q; want wal", journalMode)
	}

	var fk int
	if err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("foreign_keys = %d; want 1", fk)
	}
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)

	version, err := db.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != 3 {
		t.Errorf("Version() = %d; want 3", version)
	}

	for _, table := range []string{"progress", "mistakes", "users", "invites"} {
		var name string
		err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found: %v", table, err)
		}
	}
}

func TestMigrate_Idempotent(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
	if version, _ := db.Version(ctx); version != 3 {
		t.Errorf("Version() = %d; want 3", version)
	}
}

func TestParseVersion(t *testing.T) {
	tests := []struct {
		name    string
		want    int
		wantErr bool
	}{
		{"001_progress.sql", 1, false},
		{"002_mistakes.sql", 2, false},
		{"010_something.sql", 10, false},
		{"notaversion.sql", 0, true},
		{"abc_x.sql", 0, true},
	}
	for _, tt := range tests {
		got, err := parseVersion(tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVersion(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVersion(%q) = %d, want %d", tt.name, got, tt.want)
		}
	}
}

func TestMigrationFiles_Sorted(t *testing.T) {
	fsys := fstest.MapFS{
		"010_late.sql":  {Data: []byte("")},
		"002_mid.sql":   {Data: []byte("")},
		"001_first.sql": {Data: []byte("")},
		"README.md":     {Data: []byte("")},
	}
	files, err := migrationFiles(fsys)
	if err != nil {
		t.Fatalf("migrationFiles() error = %v", err)
	}
	want := []string{"001_first.sql", "002_mid.sql", "010_late.sql"}
	if len(files) != len(want) {
		t.Fatalf("migrationFiles() = %v; want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("migrationFiles()[%d] = %q; want %q", i, files[i], want[i])
		}
	}
}

// openTestDB is a helper that opens and migrates a test database.
func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}
