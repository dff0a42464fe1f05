package snapdiff

import (
	"strings"
)

// Kind identifies what happened to a value between two snapshots.
type Kind string

const (
	// KindAdd marks a value that appeared where there was none.
	KindAdd Kind = "add"
	// KindRemove marks a value that disappeared.
	KindRemove Kind = "remove"
	// KindChange marks a value replaced by a different one.
	KindChange Kind = "change"
)

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a string representation into a Kind. Returns false for
// unrecognised values.
func ParseKind(value string) (Kind, bool) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "add", "added":
		return KindAdd, true
	case "remove", "removed":
		return KindRemove, true
	case "change", "changed":
		return KindChange, true
	default:
		return "", false
	}
}

// Path is the sequence of field names and dict keys leading to a changed
// value. A single segment path is a plain top-level field.
type Path []string

// String joins the segments with dots.
func (p Path) String() string {
	return strings.Join(p, ".")
}

// Field returns the top-level field the path starts at.
func (p Path) Field() string {
	if len(p) == 0 {
		return ""
	}
	return p[0]
}

// Key returns the innermost segment.
func (p Path) Key() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) clone() Path {
	if p == nil {
		return nil
	}
	out := make(Path, len(p))
	copy(out, p)
	return out
}

func (p Path) append(segment string) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, segment)
}

// Record is one detected change. Old is nil for additions and New is nil for
// removals.
type Record struct {
	Path Path `json:"path"`
	Old  any  `json:"old"`
	New  any  `json:"new"`
	Kind Kind `json:"kind"`
}

// Document is one decoded observation of a tracked entity.
type Document = map[string]any

// Option configures an Engine.
type Option func(*engineConfig)

type engineConfig struct {
	logger    Logger
	hierarchy Hierarchy
}

func applyOptions(opts []Option) engineConfig {
	cfg := engineConfig{logger: noopLogger{}}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithHierarchy sets the hierarchy used by Engine.Diff.
func WithHierarchy(hierarchy Hierarchy) Option {
	return func(cfg *engineConfig) {
		cfg.hierarchy = hierarchy.Clone()
	}
}
