package snapdiff

import (
	"errors"
	"sort"
	"time"

	"github.com/goliatone/go-snapdiff/document"
)

// Engine computes the records describing how a document changed between two
// observations. It holds configuration only; every call builds its own
// output so one Engine can serve concurrent callers.
type Engine struct {
	cfg engineConfig
}

// New constructs an Engine.
func New(opts ...Option) *Engine {
	return &Engine{cfg: applyOptions(opts)}
}

// Hierarchy returns a copy of the hierarchy configured through WithHierarchy.
func (e *Engine) Hierarchy() Hierarchy {
	if e == nil {
		return nil
	}
	return e.cfg.hierarchy.Clone()
}

// Diff compares latest and current using the configured hierarchy.
func (e *Engine) Diff(latest, current Document) ([]Record, error) {
	return e.GetDiffs(latest, current, e.Hierarchy())
}

// GetDiffs is a convenience wrapper around a default Engine.
func GetDiffs(latest, current Document, hierarchy Hierarchy) ([]Record, error) {
	return New().GetDiffs(latest, current, hierarchy)
}

// GetDiffs compares latest (the prior snapshot) with current (the fresh one).
// Fields listed in hierarchy are descended into layer by layer so that the
// records point at the most specific value that changed; every other field
// is compared as a whole.
//
// When a hierarchy does not fit the documents the returned error is an
// *InvalidHierarchyError and the returned records end with a coarse record
// for the whole field, so callers can still report that the field changed.
// Fields after the failing one are not compared. An *UnsupportedLayerError
// is returned without a fallback record.
func (e *Engine) GetDiffs(latest, current Document, hierarchy Hierarchy) ([]Record, error) {
	if e == nil {
		e = New()
	}
	var records []Record
	for _, key := range unionKeys(latest, current) {
		oldValue, newValue := latest[key], current[key]
		if document.Equal(oldValue, newValue) {
			continue
		}

		layers, ok := hierarchy.Layers(key)
		if !ok || !document.IsCollection(newValue) {
			if kind, ok := Classify(oldValue, newValue); ok {
				records = append(records, Record{Path: Path{key}, Old: oldValue, New: newValue, Kind: kind})
			}
			continue
		}

		seed := oldValue
		if document.KindOf(seed) != document.KindOf(newValue) {
			seed = document.EmptyLike(newValue)
		}

		start := time.Now()
		w := &walker{field: key, layers: layers}
		err := w.descend(Path{key}, seed, newValue, 0, modeNormal)
		e.cfg.logger.LogDiff(LogEvent{
			Field:    key,
			Path:     w.failedAt,
			Records:  len(w.records),
			Duration: time.Since(start),
			Err:      err,
		})
		if err == nil {
			records = append(records, w.records...)
			continue
		}

		err = withField(err, key)
		if errors.Is(err, ErrInvalidHierarchy) {
			// An absent side keeps the add/remove shape of the record.
			kind, ok := Classify(oldValue, newValue)
			if !ok {
				kind = KindChange
			}
			records = append(records, Record{Path: Path{key}, Old: oldValue, New: newValue, Kind: kind})
		}
		return records, err
	}
	return records, nil
}

func unionKeys(latest, current Document) []string {
	keys := make([]string, 0, len(latest)+len(current))
	seen := make(map[string]struct{}, len(latest)+len(current))
	for _, doc := range []Document{latest, current} {
		for key := range doc {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}
