package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/stevemurr/record-gateway/record"
)

// MemoryStore keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type MemoryStore struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]record.Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]record.Record)}
}

// deepCopy returns a deep copy of a document by round-tripping through JSON.
func deepCopy(src record.Record) record.Record {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst record.Record
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (m *MemoryStore) Insert(_ context.Context, rec record.Record) (string, error) {
	doc := deepCopy(rec.WithoutID())
	id := record.NewID()
	doc[record.IDField] = id

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[id] = doc
	m.order = append(m.order, id)
	return id, nil
}

func (m *MemoryStore) List(_ context.Context) ([]record.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]record.Record, 0, len(m.order))
	for _, id := range m.order {
		result = append(result, deepCopy(m.docs[id]))
	}
	return result, nil
}

func (m *MemoryStore) Update(_ context.Context, id string, fields record.Record) (int64, error) {
	id = record.NormalizeID(id)
	patch := deepCopy(fields)

	m.mu.Lock()
	defer m.mu.Unlock()
	doc, ok := m.docs[id]
	if !ok {
		return 0, nil
	}
	record.Merge(doc, patch)
	return 1, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) (int64, error) {
	id = record.NormalizeID(id)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return 0, nil
	}
	delete(m.docs, id)
	for i, k := range m.order {
		if k == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return 1, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close(context.Context) error { return nil }
