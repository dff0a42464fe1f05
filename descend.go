package snapdiff

import (
	"github.com/goliatone/go-snapdiff/document"
)

// mode tells descend which side of the comparison is authoritative.
type mode int

const (
	// modeNormal compares latest against current.
	modeNormal mode = iota
	// modeDigAdd follows a value that only exists in current.
	modeDigAdd
	// modeDigRemove follows a value that only exists in latest.
	modeDigRemove
)

func (m mode) digging() bool {
	return m != modeNormal
}

// walker accumulates the records for one field. It lives for a single
// GetDiffs field comparison.
type walker struct {
	field    string
	layers   []Layer
	records  []Record
	failedAt Path
}

func (w *walker) emit(path Path, old, new any, kind Kind) {
	w.records = append(w.records, Record{Path: path.clone(), Old: old, New: new, Kind: kind})
}

func (w *walker) fail(path Path, reason string, args ...any) error {
	w.failedAt = path.clone()
	return invalidHierarchy(w.field, path, reason, args...)
}

// descend compares latest and current at path using w.layers[cursor:]. While
// digging, only the active side (current for modeDigAdd, latest for
// modeDigRemove) carries data and the other side stays nil.
func (w *walker) descend(path Path, latest, current any, cursor int, m mode) error {
	if document.Equal(latest, current) {
		return nil
	}

	if cursor >= len(w.layers) {
		if m.digging() {
			w.finishDig(path, latest, current, m)
			return nil
		}
		if kind, ok := Classify(latest, current); ok {
			w.emit(path, latest, current, kind)
		}
		return nil
	}

	layer := w.layers[cursor]
	switch layer.Kind {
	case LayerDict:
		return w.descendDict(path.append(layer.Key), layer.Key, latest, current, cursor, m)
	case LayerList:
		return w.descendList(path, latest, current, cursor, m)
	default:
		w.failedAt = path.clone()
		return &UnsupportedLayerError{Field: w.field, Path: path.clone(), Kind: layer.Kind.String()}
	}
}

func (w *walker) descendDict(path Path, key string, latest, current any, cursor int, m mode) error {
	if m.digging() {
		active := activeSide(latest, current, m)
		if isLeaf(active) {
			w.finishDig(path[:len(path)-1], latest, current, m)
			return nil
		}
		values, ok := document.AsMap(active)
		if !ok {
			return w.fail(path, "expected a mapping, found %s", document.KindOf(active))
		}
		value, ok := values[key]
		if !ok {
			return w.fail(path, "key %q is missing", key)
		}
		if m == modeDigAdd {
			return w.descend(path, nil, value, cursor+1, m)
		}
		return w.descend(path, value, nil, cursor+1, m)
	}

	oldValues, ok := document.AsMap(latest)
	if !ok {
		return w.fail(path, "expected a mapping in the latest snapshot, found %s", document.KindOf(latest))
	}
	newValues, ok := document.AsMap(current)
	if !ok {
		return w.fail(path, "expected a mapping in the current snapshot, found %s", document.KindOf(current))
	}
	oldValue, oldOK := oldValues[key]
	newValue, newOK := newValues[key]
	if !oldOK && !newOK {
		return w.fail(path, "key %q is missing from both snapshots", key)
	}
	if document.Equal(oldValue, newValue) {
		return nil
	}
	return w.descend(path, oldValue, newValue, cursor+1, modeNormal)
}

// descendList pairs the elements only one side holds by position. Pairs are
// compared normally, unpaired elements are dug into on their own side.
func (w *walker) descendList(path Path, latest, current any, cursor int, m mode) error {
	if m.digging() && isLeaf(activeSide(latest, current, m)) {
		w.finishDig(path, latest, current, m)
		return nil
	}

	oldItems, ok := document.AsSlice(latest)
	if !ok {
		return w.fail(path, "expected a sequence in the latest snapshot, found %s", document.KindOf(latest))
	}
	newItems, ok := document.AsSlice(current)
	if !ok {
		return w.fail(path, "expected a sequence in the current snapshot, found %s", document.KindOf(current))
	}

	onlyLatest := document.Difference(oldItems, newItems)
	onlyCurrent := document.Difference(newItems, oldItems)

	for i := 0; i < max(len(onlyLatest), len(onlyCurrent)); i++ {
		var err error
		switch {
		case i >= len(onlyLatest):
			err = w.descend(path, nil, onlyCurrent[i], cursor+1, modeDigAdd)
		case i >= len(onlyCurrent):
			err = w.descend(path, onlyLatest[i], nil, cursor+1, modeDigRemove)
		default:
			err = w.descend(path, onlyLatest[i], onlyCurrent[i], cursor+1, modeNormal)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// finishDig emits the surviving value of the active side against an absent
// counterpart, which can only classify as an add or a remove.
func (w *walker) finishDig(path Path, latest, current any, m mode) {
	if m == modeDigAdd {
		if kind, ok := Classify(nil, current); ok {
			w.emit(path, nil, current, kind)
		}
		return
	}
	if kind, ok := Classify(latest, nil); ok {
		w.emit(path, latest, nil, kind)
	}
}

func activeSide(latest, current any, m mode) any {
	if m == modeDigAdd {
		return current
	}
	return latest
}

// isLeaf reports whether a dug value has nothing left to descend into.
func isLeaf(v any) bool {
	kind := document.KindOf(v)
	return kind == document.Null || kind == document.Scalar
}
