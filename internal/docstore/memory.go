package docstore

import (
	"context"
	"sort"
	"strconv"
	"sync"
)

type memoryEntry struct {
	fields   Fields
	revision int64
}

// MemoryStore keeps documents in process memory. It loses everything on
// restart and is meant for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]memoryEntry
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]map[string]memoryEntry)}
}

func (s *MemoryStore) Get(_ context.Context, collection, key string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.collections[collection][key]
	if !ok {
		return nil, nil
	}
	return &Document{Key: key, Fields: cloneFields(entry.fields), Revision: strconv.FormatInt(entry.revision, 10)}, nil
}

func (s *MemoryStore) Set(_ context.Context, collection, key string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collection(collection)
	docs[key] = memoryEntry{fields: cloneFields(fields), revision: docs[key].revision + 1}
	return nil
}

func (s *MemoryStore) Update(_ context.Context, collection, key string, fields Fields, revision string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs := s.collection(collection)
	entry, ok := docs[key]
	if !ok || strconv.FormatInt(entry.revision, 10) != revision {
		return ErrConflict
	}
	docs[key] = memoryEntry{fields: cloneFields(fields), revision: entry.revision + 1}
	return nil
}

func (s *MemoryStore) Find(_ context.Context, collection string, q Query) ([]Document, error) {
	s.mu.RLock()
	var out []Document
	for key, entry := range s.collections[collection] {
		if !matches(entry.fields, q.Where) {
			continue
		}
		out = append(out, Document{Key: key, Fields: cloneFields(entry.fields), Revision: strconv.FormatInt(entry.revision, 10)})
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if q.OrderBy == "" {
			return out[i].Key < out[j].Key
		}
		a, b := out[i].Fields[q.OrderBy], out[j].Fields[q.OrderBy]
		if q.Desc {
			return less(b, a)
		}
		return less(a, b)
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}

func (s *MemoryStore) collection(name string) map[string]memoryEntry {
	docs, ok := s.collections[name]
	if !ok {
		docs = make(map[string]memoryEntry)
		s.collections[name] = docs
	}
	return docs
}

func matches(fields Fields, filters []Filter) bool {
	for _, f := range filters {
		if normalizeValue(fields[f.Field]) != normalizeValue(f.Value) {
			return false
		}
	}
	return true
}
