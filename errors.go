package snapdiff

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidHierarchy matches every *InvalidHierarchyError.
	ErrInvalidHierarchy = errors.New("snapdiff: invalid hierarchy")
	// ErrUnsupportedLayer matches every *UnsupportedLayerError.
	ErrUnsupportedLayer = errors.New("snapdiff: unsupported layer")
)

// InvalidHierarchyError reports that a hierarchy does not match the shape of
// the documents it was applied to: a dict key neither side carries, or a
// layer reaching a value of the wrong kind.
type InvalidHierarchyError struct {
	Field  string
	Path   Path
	Reason string
	Err    error
}

func (e *InvalidHierarchyError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("snapdiff: invalid hierarchy for field %q at %s: %s", e.Field, describePath(e.Path), e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *InvalidHierarchyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match ErrInvalidHierarchy.
func (e *InvalidHierarchyError) Is(target error) bool {
	return target == ErrInvalidHierarchy
}

// UnsupportedLayerError reports a layer descriptor whose kind is neither
// list nor dict. It is a programming error in the hierarchy and no fallback
// record is produced for it.
type UnsupportedLayerError struct {
	Field string
	Path  Path
	Kind  string
}

func (e *UnsupportedLayerError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Field == "" {
		return fmt.Sprintf("snapdiff: unsupported layer kind %q", e.Kind)
	}
	return fmt.Sprintf("snapdiff: unsupported layer kind %q for field %q at %s", e.Kind, e.Field, describePath(e.Path))
}

// Is lets errors.Is match ErrUnsupportedLayer.
func (e *UnsupportedLayerError) Is(target error) bool {
	return target == ErrUnsupportedLayer
}

func describePath(path Path) string {
	if len(path) == 0 {
		return "path=<root>"
	}
	return fmt.Sprintf("path=%q", path.String())
}

func invalidHierarchy(field string, path Path, reason string, args ...any) error {
	return &InvalidHierarchyError{
		Field:  field,
		Path:   path.clone(),
		Reason: fmt.Sprintf(reason, args...),
	}
}

func withField(err error, field string) error {
	var invalid *InvalidHierarchyError
	if errors.As(err, &invalid) && invalid.Field == "" {
		invalid.Field = field
	}
	var unsupported *UnsupportedLayerError
	if errors.As(err, &unsupported) && unsupported.Field == "" {
		unsupported.Field = field
	}
	return err
}
