package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/stevemurr/record-gateway/record"
)

// dialect captures the few places where SQLite and PostgreSQL disagree.
type dialect struct {
	// seqColumn declares the auto-incrementing column that gives List
	// its insertion order.
	seqColumn string
	// lockRow is appended to the read half of an update.
	lockRow string
	// numbered placeholders ($1, $2) instead of ?.
	numbered bool
	// serialize writes through an in-process lock (SQLite allows one writer).
	serialize bool
}

var (
	sqliteDialect = dialect{
		seqColumn: "seq INTEGER PRIMARY KEY AUTOINCREMENT",
		serialize: true,
	}
	postgresDialect = dialect{
		seqColumn: "seq BIGSERIAL PRIMARY KEY",
		lockRow:   " FOR UPDATE",
		numbered:  true,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// sqlStore stores records in one table shared by all collections.
//
// Table:
//
//	documents(seq, collection, id, data)  UNIQUE (collection, id)
type sqlStore struct {
	mu         sync.Mutex
	db         *sql.DB
	d          dialect
	collection string
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect, collection string) (*sqlStore, error) {
	ddl := `CREATE TABLE IF NOT EXISTS documents (
		` + d.seqColumn + `,
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data TEXT NOT NULL,
		UNIQUE (collection, id)
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return nil, errors.Wrap(err, "create documents table")
	}
	return &sqlStore{db: db, d: d, collection: collection}, nil
}

func (s *sqlStore) lock() func() {
	if !s.d.serialize {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *sqlStore) Insert(ctx context.Context, rec record.Record) (string, error) {
	id := record.NewID()
	b, err := json.Marshal(rec.WithoutID())
	if err != nil {
		return "", errors.Wrap(err, "insert")
	}
	defer s.lock()()
	_, err = s.db.ExecContext(ctx,
		s.d.rebind("INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)"),
		s.collection, id, string(b),
	)
	if err != nil {
		return "", errors.Wrap(err, "insert")
	}
	return id, nil
}

func (s *sqlStore) List(ctx context.Context) ([]record.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		s.d.rebind("SELECT id, data FROM documents WHERE collection = ? ORDER BY seq"),
		s.collection,
	)
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	defer rows.Close()
	result := []record.Record{}
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, errors.Wrap(err, "list")
		}
		var doc record.Record
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			return nil, errors.Wrapf(err, "decode record %s", id)
		}
		if doc == nil {
			doc = record.Record{}
		}
		doc[record.IDField] = id
		result = append(result, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list")
	}
	return result, nil
}

// Update reads, merges and writes back inside one transaction.
func (s *sqlStore) Update(ctx context.Context, id string, fields record.Record) (int64, error) {
	id = record.NormalizeID(id)
	defer s.lock()()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		s.d.rebind("SELECT data FROM documents WHERE collection = ? AND id = ?"+s.d.lockRow),
		s.collection, id,
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}

	var doc record.Record
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return 0, errors.Wrapf(err, "decode record %s", id)
	}
	if doc == nil {
		doc = record.Record{}
	}
	record.Merge(doc, fields)
	b, err := json.Marshal(doc)
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}
	if _, err := tx.ExecContext(ctx,
		s.d.rebind("UPDATE documents SET data = ? WHERE collection = ? AND id = ?"),
		string(b), s.collection, id,
	); err != nil {
		return 0, errors.Wrap(err, "update")
	}
	if err := tx.Commit(); err != nil {
		return 0, errors.Wrap(err, "update")
	}
	return 1, nil
}

func (s *sqlStore) Delete(ctx context.Context, id string) (int64, error) {
	id = record.NormalizeID(id)
	defer s.lock()()
	res, err := s.db.ExecContext(ctx,
		s.d.rebind("DELETE FROM documents WHERE collection = ? AND id = ?"),
		s.collection, id,
	)
	if err != nil {
		return 0, errors.Wrap(err, "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "delete")
	}
	return n, nil
}

func (s *sqlStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqlStore) Close(context.Context) error {
	return s.db.Close()
}
