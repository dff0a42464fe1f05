package state

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	snapdiff "github.com/goliatone/go-snapdiff"
)

// ErrInvalidRef is returned when a Ref cannot be turned into a storage key.
var ErrInvalidRef = errors.New("state: invalid ref")

// Ref identifies one tracked entity, e.g. {Kind: "company", ID: "SMCE"}.
type Ref struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// Identifier returns the canonical storage key "<kind>/<id>". Kind must not
// contain a slash; ID may.
func (r Ref) Identifier() (string, error) {
	kind := strings.TrimSpace(r.Kind)
	id := strings.TrimSpace(r.ID)
	if kind == "" {
		return "", fmt.Errorf("%w: kind is required", ErrInvalidRef)
	}
	if id == "" {
		return "", fmt.Errorf("%w: id is required for kind %q", ErrInvalidRef, kind)
	}
	if strings.Contains(kind, "/") {
		return "", fmt.Errorf("%w: kind %q must not contain '/'", ErrInvalidRef, kind)
	}
	return kind + "/" + id, nil
}

func (r Ref) String() string {
	return r.Kind + "/" + r.ID
}

// Meta is storage-owned metadata about the latest snapshot.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Store loads/saves the latest snapshot for a single entity.
type Store interface {
	Load(ctx context.Context, ref Ref) (snapshot snapdiff.Document, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, snapshot snapdiff.Document, meta Meta) (Meta, error)
}

// Entry is one observation that produced records, or failed to.
type Entry struct {
	Ref                Ref               `json:"ref"`
	SnapshotID         string            `json:"snapshot_id"`
	PreviousSnapshotID string            `json:"previous_snapshot_id,omitempty"`
	Records            []snapdiff.Record `json:"records"`
	Suppressed         int               `json:"suppressed,omitempty"`
	ObservedAt         time.Time         `json:"observed_at"`
	Error              string            `json:"error,omitempty"`
}

// DiffLog stores entries per entity in observation order.
type DiffLog interface {
	Append(ctx context.Context, entry Entry) error
	// Entries returns the newest limit entries, oldest first. A limit of
	// zero or less returns every entry.
	Entries(ctx context.Context, ref Ref, limit int) ([]Entry, error)
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}

func mergeMeta(base, override Meta) Meta {
	out := cloneMeta(base)
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = cloneMeta(override).Extra
	}
	return out
}

func tail(entries []Entry, limit int) []Entry {
	if limit <= 0 || len(entries) <= limit {
		return entries
	}
	return entries[len(entries)-limit:]
}
