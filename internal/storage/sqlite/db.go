package sqlite

import (
	"database/sql"
	"fmt"

	"github.com/yegors/driverops/pkg/logger"
	_ "modernc.org/sqlite"
)

// Open opens the database at dbPath and applies the connection pragmas.
// Use ":memory:" for a throwaway database.
func Open(dbPath string, log *logger.Logger) (*sql.DB, error) {
	log.Info("Opening SQLite database", logger.String("path", dbPath))

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time; a single connection also
	// keeps an in-memory database alive across calls
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	return db, nil
}
