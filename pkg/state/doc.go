// Package state persists snapshots of tracked entities and runs the diff
// engine each time a new snapshot is observed.
//
// Responsibilities:
//   - Store loads/saves the latest snapshot for a single Ref.
//   - DiffLog appends one Entry per observation that produced records.
//   - Tracker ties both together: load the previous snapshot, diff it
//     against the new one with the hierarchy registered for Ref.Kind, filter
//     suppressed records, save, append and notify.
//
// Data flow:
//
//	fetch -> hydrate -> Tracker.Observe -> snapdiff.Engine -> Filter
//	      -> Store.Save + DiffLog.Append -> activity.Emitter
//
// Deterministic keys:
//
//	Ref.Identifier() renders "<kind>/<id>". MemoryStore and PebbleStore both
//	key on it, so snapshots written by one can be read back by the other
//	through an export/import.
package state
