// Package layering composes rule argument maps from layered configuration
// (per-kind settings over shared defaults).
package layering

import "github.com/goliatone/go-snapdiff/document"

// Merge composes layers ordered from strongest to weakest. Nested maps are
// merged key by key; any other value from a stronger layer replaces the
// weaker one wholesale, sequences included. Nil values do not override.
// The result never aliases the inputs.
func Merge(layers ...map[string]any) map[string]any {
	merged := map[string]any{}
	for i := len(layers) - 1; i >= 0; i-- {
		merged = mergeMap(layers[i], merged)
	}
	if len(merged) == 0 {
		return nil
	}
	return merged
}

func mergeMap(strong, weak map[string]any) map[string]any {
	if strong == nil {
		return weak
	}
	for key, value := range strong {
		weak[key] = mergeValue(document.Normalize(value), weak[key])
	}
	return weak
}

func mergeValue(strong, weak any) any {
	if strong == nil {
		return weak
	}
	strongMap, ok := strong.(map[string]any)
	if !ok {
		return document.Clone(strong)
	}
	weakMap, ok := weak.(map[string]any)
	if !ok {
		weakMap = map[string]any{}
	}
	return mergeMap(strongMap, weakMap)
}
