package snapdiff

import (
	"fmt"

	"github.com/goliatone/go-snapdiff/document"
)

// DefaultFunctions returns a registry with the helpers every rule engine
// gets unless the caller supplies its own registry:
//
//	rank(value, ordering...)  position of value in ordering, -1 when absent
//	novalue(value)            true for null, "", "none" and "nan"
//
// rank also accepts the ordering as a single list argument, which is the
// only form CEL can express.
func DefaultFunctions() *FunctionRegistry {
	registry := NewFunctionRegistry()
	_ = registry.Register("rank", rankFunction)
	_ = registry.Register("novalue", func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("snapdiff: novalue expects 1 argument, got %d", len(args))
		}
		return NoValue(args[0]), nil
	})
	return registry
}

func rankFunction(args ...any) (any, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("snapdiff: rank expects a value and an ordering")
	}
	value := args[0]
	ordering := args[1:]
	if len(ordering) == 1 {
		if list, ok := document.AsSlice(ordering[0]); ok && document.KindOf(ordering[0]) == document.Sequence {
			ordering = list
		}
	}
	for i, candidate := range ordering {
		if document.Equal(candidate, value) {
			return i, nil
		}
	}
	return -1, nil
}
