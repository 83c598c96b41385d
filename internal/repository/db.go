package repository

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens (or creates) a SQLite database at the given path and ensures
// all required tables exist. Pass ":memory:" for an in-memory database.
func InitDB(dsn string) (*sql.DB, error) {
	// The pragmas below are per-connection; pass them in the DSN so every
	// connection database/sql pools gets them, not just the first.
	db, err := sql.Open("sqlite", dsn+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set wal mode: %w", err)
	}

	// Concurrent batch windows write in parallel; wait for the writer lock
	// instead of failing with SQLITE_BUSY.
	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return db, nil
}

func createTables(db *sql.DB) error {
	stmts := []string{
		// The PRIMARY KEY on order_number is the sole write-concurrency
		// mechanism: a conflicting insert means the order was already
		// reconciled by another window or run.
		`CREATE TABLE IF NOT EXISTS shipping_charges (
			order_number TEXT PRIMARY KEY,
			shipping_charge REAL NOT NULL,
			freight_forward REAL NOT NULL,
			freight_cod REAL NOT NULL,
			freight_rto REAL NOT NULL,
			whatsapp_charges REAL NOT NULL,
			other_charges REAL NOT NULL,
			shiprocket_order_id INTEGER NOT NULL,
			awb_code TEXT NOT NULL DEFAULT '',
			courier_name TEXT NOT NULL DEFAULT '',
			weight REAL NOT NULL DEFAULT 0,
			status TEXT NOT NULL DEFAULT '',
			fetched_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_shipping_charges_awb ON shipping_charges(awb_code)`,
		`CREATE INDEX IF NOT EXISTS idx_shipping_charges_fetched_at ON shipping_charges(fetched_at)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}

	return nil
}
