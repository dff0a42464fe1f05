package snapdiff

import (
	"fmt"
	"strings"
)

// NoValue reports whether v stands for "no data". Upstream sources spell
// that as null, "", "None" or a stringified NaN interchangeably, so all of
// them compare as empty.
func NoValue(v any) bool {
	if v == nil {
		return true
	}
	switch strings.ToLower(fmt.Sprint(v)) {
	case "none", "nan", "":
		return true
	default:
		return false
	}
}

// Classify returns the kind of change from old to new. The second result is
// false when both values are empty, in which case no record should be
// emitted. Callers are expected to have already established old != new.
func Classify(old, new any) (Kind, bool) {
	oldEmpty, newEmpty := NoValue(old), NoValue(new)
	switch {
	case oldEmpty && newEmpty:
		return "", false
	case oldEmpty:
		return KindAdd, true
	case newEmpty:
		return KindRemove, true
	default:
		return KindChange, true
	}
}
