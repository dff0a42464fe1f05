package state

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/cockroachdb/pebble"
	snapdiff "github.com/goliatone/go-snapdiff"
)

// Key layout. Identifiers may contain '/', so components are separated by
// 0x00 which never appears in a Ref.
const (
	snapshotPrefix = 's'
	entryPrefix    = 'l'
	keySep         = 0x00
)

// PebbleStore persists snapshots and the diff log in a pebble database.
type PebbleStore struct {
	db     *pebble.DB
	owned  bool
	seq    atomic.Uint64
	closed atomic.Bool
}

type pebbleSnapshot struct {
	Snapshot snapdiff.Document `json:"snapshot"`
	Meta     Meta              `json:"meta"`
}

// OpenPebbleStore opens (or creates) a pebble database at path. opts may be
// nil; tests pass &pebble.Options{FS: vfs.NewMem()}.
func OpenPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("state: open pebble %q: %w", path, err)
	}
	store := NewPebbleStore(db)
	store.owned = true
	return store, nil
}

// NewPebbleStore wraps an already opened database. Close leaves db open.
func NewPebbleStore(db *pebble.DB) *PebbleStore {
	return &PebbleStore{db: db}
}

// Close closes the database when the store opened it.
func (s *PebbleStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) || !s.owned {
		return nil
	}
	return s.db.Close()
}

func (s *PebbleStore) Load(_ context.Context, ref Ref) (snapdiff.Document, Meta, bool, error) {
	key, err := snapshotKey(ref)
	if err != nil {
		return nil, Meta{}, false, err
	}
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, Meta{}, false, nil
	}
	if err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: load %s: %w", ref, err)
	}
	defer closer.Close()

	var stored pebbleSnapshot
	if err := decodeValue(value, &stored); err != nil {
		return nil, Meta{}, false, fmt.Errorf("state: decode snapshot %s: %w", ref, err)
	}
	if stored.Snapshot == nil {
		stored.Snapshot = snapdiff.Document{}
	}
	return stored.Snapshot, stored.Meta, true, nil
}

func (s *PebbleStore) Save(_ context.Context, ref Ref, snapshot snapdiff.Document, meta Meta) (Meta, error) {
	key, err := snapshotKey(ref)
	if err != nil {
		return Meta{}, err
	}
	value, err := json.Marshal(pebbleSnapshot{Snapshot: snapshot, Meta: meta})
	if err != nil {
		return Meta{}, fmt.Errorf("state: encode snapshot %s: %w", ref, err)
	}
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return Meta{}, fmt.Errorf("state: save %s: %w", ref, err)
	}
	return cloneMeta(meta), nil
}

func (s *PebbleStore) Append(_ context.Context, entry Entry) error {
	prefix, err := entryKeyPrefix(entry.Ref)
	if err != nil {
		return err
	}
	key := fmt.Appendf(prefix, "%020d%c%010d", entry.ObservedAt.UnixNano(), keySep, s.seq.Add(1))
	value, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("state: encode entry %s: %w", entry.Ref, err)
	}
	if err := s.db.Set(key, value, pebble.Sync); err != nil {
		return fmt.Errorf("state: append entry %s: %w", entry.Ref, err)
	}
	return nil
}

func (s *PebbleStore) Entries(_ context.Context, ref Ref, limit int) ([]Entry, error) {
	prefix, err := entryKeyPrefix(ref)
	if err != nil {
		return nil, err
	}
	upper := append([]byte(nil), prefix...)
	upper[len(upper)-1]++

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefix, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("state: iterate entries %s: %w", ref, err)
	}
	defer iter.Close()

	// Walk backwards so a small limit does not decode the whole history.
	var newestFirst []Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		var entry Entry
		if err := decodeValue(iter.Value(), &entry); err != nil {
			return nil, fmt.Errorf("state: decode entry %s: %w", ref, err)
		}
		newestFirst = append(newestFirst, entry)
		if limit > 0 && len(newestFirst) == limit {
			break
		}
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("state: iterate entries %s: %w", ref, err)
	}

	entries := make([]Entry, len(newestFirst))
	for i, entry := range newestFirst {
		entries[len(newestFirst)-1-i] = entry
	}
	return entries, nil
}

func snapshotKey(ref Ref) ([]byte, error) {
	id, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	return append([]byte{snapshotPrefix, keySep}, id...), nil
}

func entryKeyPrefix(ref Ref) ([]byte, error) {
	id, err := ref.Identifier()
	if err != nil {
		return nil, err
	}
	key := append([]byte{entryPrefix, keySep}, id...)
	return append(key, keySep), nil
}

// decodeValue keeps numbers as json.Number so stored integers round trip
// exactly.
func decodeValue(data []byte, v any) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	return decoder.Decode(v)
}
