package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
	"github.com/pkg/errors"
)

// SqliteStore keeps the collection in a local SQLite database.
type SqliteStore struct {
	*sqlStore
}

func NewSqliteStore(ctx context.Context, dbPath, collection string) (*SqliteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "enable WAL")
	}
	s, err := newSQLStore(ctx, db, sqliteDialect, collection)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &SqliteStore{sqlStore: s}, nil
}
