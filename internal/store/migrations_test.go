package store

import (
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

func TestMigrationsAddMissingColumns(t *testing.T) {
	// A database created by the first schema, before outcome tracking.
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	if _, err := db.Exec(`CREATE TABLE sessions (
		id TEXT PRIMARY KEY,
		allowed_fp TEXT NOT NULL,
		answers_fp TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		t.Fatal(err)
	}

	if err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}

	for _, col := range []string{"solved", "turns"} {
		if !columnExists(db, "sessions", col) {
			t.Errorf("column sessions.%s missing after migration", col)
		}
	}

	// Running again must be a no-op.
	if err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
}

func TestMigrationsSkipMissingTables(t *testing.T) {
	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	// No tables at all: migrations must not fail or create them.
	if err := RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	if tableExists(db, "sessions") {
		t.Error("migrations should not create tables")
	}
}
