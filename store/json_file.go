package store

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/stevemurr/record-gateway/record"
)

// JsonFileStore stores the collection as a single JSON array on disk,
// in insertion order.
//
// Layout:
//
//	data_dir/
//	  playerCollection.json
type JsonFileStore struct {
	mu   sync.RWMutex
	path string
}

func NewJsonFileStore(dir, collection string) (*JsonFileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create data dir")
	}
	return &JsonFileStore{path: filepath.Join(dir, collection+".json")}, nil
}

func (s *JsonFileStore) load() ([]record.Record, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []record.Record{}, nil
		}
		return nil, err
	}
	var docs []record.Record
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.path)
	}
	return docs, nil
}

// save writes to a temp file and renames it over the collection file so a
// crash never leaves a half-written array behind.
func (s *JsonFileStore) save(docs []record.Record) error {
	b, err := json.MarshalIndent(docs, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}

func (s *JsonFileStore) Insert(_ context.Context, rec record.Record) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load()
	if err != nil {
		return "", errors.Wrap(err, "insert")
	}
	doc := rec.WithoutID()
	id := record.NewID()
	doc[record.IDField] = id
	if err := s.save(append(docs, doc)); err != nil {
		return "", errors.Wrap(err, "insert")
	}
	return id, nil
}

func (s *JsonFileStore) List(_ context.Context) ([]record.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs, err := s.load()
	if err != nil {
		return nil, errors.Wrap(err, "list")
	}
	return docs, nil
}

func (s *JsonFileStore) Update(_ context.Context, id string, fields record.Record) (int64, error) {
	id = record.NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load()
	if err != nil {
		return 0, errors.Wrap(err, "update")
	}
	for _, doc := range docs {
		if doc[record.IDField] == id {
			record.Merge(doc, fields)
			if err := s.save(docs); err != nil {
				return 0, errors.Wrap(err, "update")
			}
			return 1, nil
		}
	}
	return 0, nil
}

func (s *JsonFileStore) Delete(_ context.Context, id string) (int64, error) {
	id = record.NormalizeID(id)
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.load()
	if err != nil {
		return 0, errors.Wrap(err, "delete")
	}
	for i, doc := range docs {
		if doc[record.IDField] == id {
			if err := s.save(append(docs[:i], docs[i+1:]...)); err != nil {
				return 0, errors.Wrap(err, "delete")
			}
			return 1, nil
		}
	}
	return 0, nil
}

// Ping verifies the data directory is still there.
func (s *JsonFileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.path))
	return err
}

func (s *JsonFileStore) Close(context.Context) error { return nil }
