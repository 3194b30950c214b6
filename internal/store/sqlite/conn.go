package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Open opens (or creates) a SQLite database at the given path and enables WAL
// journal mode. ":memory:" opens a private in-memory database (used by
// tests); each call gets its own.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:mem-%s?mode=memory&cache=shared&_pragma=foreign_keys(ON)", uuid.New().String())
	if path != ":memory:" && path != "" {
		// ensure parent directory exists to avoid SQLITE_CANTOPEN errors
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		dsn = fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// A shared-cache in-memory database disappears when the last connection
	// closes; pin one connection so the schema survives the pool cycling.
	if path == ":memory:" || path == "" {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
