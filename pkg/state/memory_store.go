package state

import (
	"context"
	"sync"

	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/document"
)

// MemoryStore is an in-memory Store and DiffLog intended for tests, examples
// and one-shot CLI runs. Snapshots are deep copied on the way in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	entries map[string][]Entry
}

type memoryRecord struct {
	snapshot snapdiff.Document
	meta     Meta
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: map[string]memoryRecord{},
		entries: map[string][]Entry{},
	}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (snapdiff.Document, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return document.CloneMap(record.snapshot), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, snapshot snapdiff.Document, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{snapshot: document.CloneMap(snapshot), meta: cloneMeta(meta)}
	s.mu.Unlock()
	return cloneMeta(meta), nil
}

func (s *MemoryStore) Append(_ context.Context, entry Entry) error {
	key, err := entry.Ref.Identifier()
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.entries[key] = append(s.entries[key], entry)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Entries(_ context.Context, ref Ref, limit int) ([]Entry, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := tail(s.entries[key], limit)
	return append([]Entry(nil), entries...), nil
}
