// Package snapdiff computes structural differences between two snapshots of
// the same document.
//
// A snapshot is a map of top level fields. Fields without a hierarchy entry
// are compared as a whole. Fields with an entry are descended layer by
// layer: a List layer pairs up the elements that differ between both sides,
// a Dict layer narrows each side to one key. Elements present on only one
// side are "dug" to the end of the hierarchy and reported as additions or
// removals, never as changes.
//
//	h := snapdiff.Hierarchy{
//		"officers": {snapdiff.List(), snapdiff.Dict("name")},
//	}
//	records, err := snapdiff.GetDiffs(latest, current, h)
//
// Records can be filtered with suppression rules written in expr, CEL or
// (with the js_eval build tag) JavaScript; see NewFilter.
package snapdiff
