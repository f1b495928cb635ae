package store_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/record-gateway/config"
	"github.com/stevemurr/record-gateway/record"
	"github.com/stevemurr/record-gateway/store"
)

// runStoreTests runs a common test suite against any Store implementation.
// The store must start out empty.
func runStoreTests(t *testing.T, s store.Store) {
	t.Helper()
	ctx := context.Background()

	var neymar, messi string

	t.Run("List empty", func(t *testing.T) {
		docs, err := s.List(ctx)
		require.NoError(t, err)
		assert.NotNil(t, docs)
		assert.Len(t, docs, 0)
	})

	t.Run("Insert assigns identifier", func(t *testing.T) {
		var err error
		neymar, err = s.Insert(ctx, record.Record{
			"name": "Neymar Jr", "position": "LW", "number": float64(10),
		})
		require.NoError(t, err)
		assert.True(t, record.IsValidID(neymar), "id %q", neymar)

		messi, err = s.Insert(ctx, record.Record{
			"_id": "caller-chosen", "name": "Lionel Messi", "position": "RW", "number": float64(10),
		})
		require.NoError(t, err)
		assert.True(t, record.IsValidID(messi), "id %q", messi)
		assert.NotEqual(t, neymar, messi)
	})

	t.Run("List returns documents plus identifier in insertion order", func(t *testing.T) {
		docs, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, record.Record{
			"_id": neymar, "name": "Neymar Jr", "position": "LW", "number": float64(10),
		}, docs[0])
		assert.Equal(t, messi, docs[1]["_id"])
		assert.Equal(t, "Lionel Messi", docs[1]["name"])
	})

	t.Run("Update merges fields", func(t *testing.T) {
		n, err := s.Update(ctx, neymar, record.Record{"number": float64(11)})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		// same update again still matches
		n, err = s.Update(ctx, neymar, record.Record{"number": float64(11)})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		docs, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, record.Record{
			"_id": neymar, "name": "Neymar Jr", "position": "LW", "number": float64(11),
		}, docs[0])
	})

	t.Run("Update ignores identifier field", func(t *testing.T) {
		n, err := s.Update(ctx, neymar, record.Record{"_id": record.NewID(), "club": "Santos"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		docs, err := s.List(ctx)
		require.NoError(t, err)
		assert.Equal(t, neymar, docs[0]["_id"])
		assert.Equal(t, "Santos", docs[0]["club"])
	})

	t.Run("Update with no fields reports match", func(t *testing.T) {
		n, err := s.Update(ctx, neymar, record.Record{})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("Update accepts uppercase identifier", func(t *testing.T) {
		n, err := s.Update(ctx, strings.ToUpper(neymar), record.Record{"position": "LW"})
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("Update missing", func(t *testing.T) {
		n, err := s.Update(ctx, record.NewID(), record.Record{"number": float64(1)})
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)

		docs, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 2)
	})

	t.Run("Delete existing by uppercase identifier", func(t *testing.T) {
		n, err := s.Delete(ctx, strings.ToUpper(neymar))
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		docs, err := s.List(ctx)
		require.NoError(t, err)
		require.Len(t, docs, 1)
		assert.Equal(t, messi, docs[0]["_id"])
	})

	t.Run("Delete twice", func(t *testing.T) {
		n, err := s.Delete(ctx, neymar)
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("Delete malformed identifier", func(t *testing.T) {
		n, err := s.Delete(ctx, "not-an-id")
		require.NoError(t, err)
		assert.EqualValues(t, 0, n)
	})

	t.Run("Concurrent inserts", func(t *testing.T) {
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := s.Insert(ctx, record.Record{"n": float64(i)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		docs, err := s.List(ctx)
		require.NoError(t, err)
		assert.Len(t, docs, 11)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, s.Ping(ctx))
	})
}

func TestMemoryStore(t *testing.T) {
	s := store.NewMemoryStore()
	runStoreTests(t, s)
}

func TestMemoryStoreCopiesDocuments(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()

	in := record.Record{"tags": []any{"a"}}
	id, err := s.Insert(ctx, in)
	require.NoError(t, err)
	in["tags"] = []any{"mutated"}

	docs, err := s.List(ctx)
	require.NoError(t, err)
	docs[0]["name"] = "mutated"

	docs, err = s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, record.Record{"_id": id, "tags": []any{"a"}}, docs[0])
}

func TestJsonFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewJsonFileStore(dir, "players")
	require.NoError(t, err)
	runStoreTests(t, s)

	_, err = os.Stat(filepath.Join(dir, "players.json"))
	assert.NoError(t, err)
}

func TestJsonFileStorePersists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := store.NewJsonFileStore(dir, "players")
	require.NoError(t, err)
	id, err := s.Insert(ctx, record.Record{"name": "Sergio Ramos"})
	require.NoError(t, err)

	reopened, err := store.NewJsonFileStore(dir, "players")
	require.NoError(t, err)
	docs, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0]["_id"])
}

func TestJsonFileStoreCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "players.json"), []byte("{not json"), 0o644))

	s, err := store.NewJsonFileStore(dir, "players")
	require.NoError(t, err)
	_, err = s.List(context.Background())
	assert.Error(t, err)
}

func TestSqliteStore(t *testing.T) {
	dir := t.TempDir()
	s, err := store.NewSqliteStore(context.Background(), filepath.Join(dir, "test.db"), "players")
	require.NoError(t, err)
	defer s.Close(context.Background())
	runStoreTests(t, s)
}

func TestSqliteStoreCollectionIsolation(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	a, err := store.NewSqliteStore(ctx, dbPath, "a")
	require.NoError(t, err)
	defer a.Close(ctx)
	b, err := store.NewSqliteStore(ctx, dbPath, "b")
	require.NoError(t, err)
	defer b.Close(ctx)

	id, err := a.Insert(ctx, record.Record{"x": float64(1)})
	require.NoError(t, err)

	docs, err := b.List(ctx)
	require.NoError(t, err)
	assert.Len(t, docs, 0)

	n, err := b.Delete(ctx, id)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	ctx := context.Background()
	s, err := store.NewPostgresStore(ctx, dsn, "test_"+record.NewID())
	require.NoError(t, err)
	defer s.Close(ctx)
	runStoreTests(t, s)
}

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_URI")
	if uri == "" {
		t.Skip("MONGO_URI not set")
	}
	ctx := context.Background()
	s, err := store.NewMongoStore(ctx, uri, "gateway_test", "players_"+record.NewID())
	require.NoError(t, err)
	defer s.Close(ctx)
	runStoreTests(t, s)
}

func TestFactory(t *testing.T) {
	dir := t.TempDir()

	for _, backend := range []string{"json", "sqlite", "memory"} {
		t.Run(backend, func(t *testing.T) {
			s, err := store.New(context.Background(), config.StoreConfig{
				Backend:    backend,
				DataDir:    filepath.Join(dir, backend),
				Collection: "players",
			})
			require.NoError(t, err)
			assert.NoError(t, s.Ping(context.Background()))
			assert.NoError(t, s.Close(context.Background()))
		})
	}

	t.Run("unknown", func(t *testing.T) {
		_, err := store.New(context.Background(), config.StoreConfig{Backend: "redis"})
		assert.ErrorIs(t, err, store.ErrUnknownBackend)
	})
}

func TestFactoryUnreachableStore(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.StoreConfig
	}{
		{"mongo", config.StoreConfig{
			Backend:    "mongo",
			MongoURI:   "mongodb://127.0.0.1:1",
			Database:   "playerDB",
			Collection: "playerCollection",
		}},
		{"postgres", config.StoreConfig{
			Backend:     "postgres",
			PostgresDSN: "postgres://gateway@127.0.0.1:1/playerdb?sslmode=disable&connect_timeout=1",
			Collection:  "playerCollection",
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.ConnectTimeout.Duration = 500 * time.Millisecond
			start := time.Now()
			_, err := store.New(context.Background(), tc.cfg)
			assert.Error(t, err)
			assert.Less(t, time.Since(start), 5*time.Second)
		})
	}
}
