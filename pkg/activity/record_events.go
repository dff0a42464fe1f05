package activity

import (
	"strings"
	"time"
)

// Verbs emitted for diff records.
const (
	VerbFieldAdded   = "snapshot.field.added"
	VerbFieldRemoved = "snapshot.field.removed"
	VerbFieldChanged = "snapshot.field.changed"
)

// RecordEventInput describes one diff record observed for an entity. DiffKind
// is the record kind ("add", "remove" or "change").
type RecordEventInput struct {
	ActorID    string
	TenantID   string
	EntityKind string
	EntityID   string
	SnapshotID string
	Channel    string
	Recipients []string
	Metadata   map[string]any
	Path       string
	DiffKind   string
	OldValue   any
	NewValue   any
	OccurredAt time.Time
}

// VerbForKind maps a record kind to its activity verb. Unknown kinds map to
// the empty verb so Hooks drop them.
func VerbForKind(kind string) string {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "add", "added":
		return VerbFieldAdded
	case "remove", "removed":
		return VerbFieldRemoved
	case "change", "changed":
		return VerbFieldChanged
	default:
		return ""
	}
}

// BuildRecordEvent constructs the activity event for a single diff record.
func BuildRecordEvent(input RecordEventInput) Event {
	metadata := ensureMetadata(cloneMap(input.Metadata))
	kind := strings.ToLower(strings.TrimSpace(input.DiffKind))
	metadata["diff_kind"] = kind
	if input.Path != "" {
		metadata["path"] = input.Path
	}
	if input.EntityKind != "" {
		metadata["entity_kind"] = strings.TrimSpace(input.EntityKind)
	}
	if input.SnapshotID != "" {
		metadata["snapshot_id"] = strings.TrimSpace(input.SnapshotID)
	}
	// Absent sides stay absent; a literal null on a change is kept.
	if input.OldValue != nil || VerbForKind(kind) == VerbFieldChanged {
		metadata["old_value"] = input.OldValue
	}
	if input.NewValue != nil || VerbForKind(kind) == VerbFieldChanged {
		metadata["new_value"] = input.NewValue
	}

	recipients := input.Recipients
	if len(recipients) > 0 {
		recipients = append([]string{}, input.Recipients...)
	}

	return Event{
		Verb:       VerbForKind(kind),
		ActorID:    strings.TrimSpace(input.ActorID),
		TenantID:   strings.TrimSpace(input.TenantID),
		ObjectType: strings.TrimSpace(input.EntityKind),
		ObjectID:   strings.TrimSpace(input.EntityID),
		SnapshotID: strings.TrimSpace(input.SnapshotID),
		Channel:    strings.TrimSpace(input.Channel),
		Recipients: recipients,
		Metadata:   metadata,
		OccurredAt: input.OccurredAt,
	}
}

func ensureMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
