package store

import (
	"context"
	"database/sql"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/pkg/errors"
)

// PostgresStore keeps the collection in a PostgreSQL database.
type PostgresStore struct {
	*sqlStore
}

// NewPostgresStore connects to dsn and fails if the server is unreachable.
func NewPostgresStore(ctx context.Context, dsn, collection string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	s, err := newSQLStore(ctx, db, postgresDialect, collection)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{sqlStore: s}, nil
}
