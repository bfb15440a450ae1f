package store

import (
	"database/sql"
	"fmt"

	"github.com/dounan/diffle-solver/internal/logging"
)

// Migration adds a column to an existing table.
type Migration struct {
	Table  string
	Column string
	Def    string
}

// pendingMigrations lists schema migrations for databases created by
// older builds.
var pendingMigrations = []Migration{
	// Session outcome tracking (added after the first schema)
	{"sessions", "solved", "BOOLEAN DEFAULT FALSE"},
	{"sessions", "turns", "INTEGER DEFAULT 0"},
	// Opening guess quality for cache display
	{"opening_guesses", "score", "INTEGER NOT NULL DEFAULT 0"},
}

// RunMigrations applies schema migrations for existing databases.
func RunMigrations(db *sql.DB) error {
	timer := logging.StartTimer(logging.CategoryStore, "RunMigrations")
	defer timer.Stop()

	for _, m := range pendingMigrations {
		if !tableExists(db, m.Table) {
			continue
		}
		if columnExists(db, m.Table, m.Column) {
			continue
		}
		query := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", m.Table, m.Column, m.Def)
		logging.StoreDebug("executing migration: %s", query)
		if _, err := db.Exec(query); err != nil {
			// Column may already exist in a different form; log and move on.
			logging.Get(logging.CategoryStore).Warn("migration failed: %s.%s: %v", m.Table, m.Column, err)
		}
	}
	return nil
}

func tableExists(db *sql.DB, table string) bool {
	var name string
	err := db.QueryRow(
		`SELECT name FROM sqlite_master WHERE type='table' AND name = ?`, table).Scan(&name)
	return err == nil
}

func columnExists(db *sql.DB, table, column string) bool {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			continue
		}
		if name == column {
			return true
		}
	}
	return false
}
