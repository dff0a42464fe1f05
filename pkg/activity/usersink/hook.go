package usersink

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-snapdiff/pkg/activity"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

// Hook adapts diff activity events to a go-users ActivitySink.
type Hook struct {
	Sink usertypes.ActivitySink
	// UserID, when set, attributes every record to this user; useful when a
	// single watchlist owner receives the notifications.
	UserID string
}

// Notify maps the event into an ActivityRecord and forwards it to the sink.
// Non-UUID actor and tenant identifiers are kept in the record data.
func (h Hook) Notify(ctx context.Context, event activity.Event) error {
	if h.Sink == nil {
		return nil
	}

	normalized := activity.NormalizeEvent(event)
	if !normalized.Valid() {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	data := cloneMap(normalized.Metadata)
	record := usertypes.ActivityRecord{
		ActorID:    parseUUID(normalized.ActorID, "actor", &data),
		UserID:     parseUUID(h.UserID, "user", &data),
		TenantID:   parseUUID(normalized.TenantID, "tenant", &data),
		Verb:       normalized.Verb,
		ObjectType: normalized.ObjectType,
		ObjectID:   normalized.ObjectID,
		Channel:    normalized.Channel,
		OccurredAt: normalized.OccurredAt,
	}
	if record.OccurredAt.IsZero() {
		record.OccurredAt = time.Now()
	}
	if normalized.SnapshotID != "" {
		data = ensure(data)
		data["snapshot_id"] = normalized.SnapshotID
	}
	if len(normalized.Recipients) > 0 {
		data = ensure(data)
		data["recipients"] = append([]string{}, normalized.Recipients...)
	}
	record.Data = data

	return h.Sink.Log(ctx, record)
}

// parseUUID returns uuid.Nil for blank input; other non-UUID values are
// preserved under "<label>_ref" in data.
func parseUUID(input, label string, data *map[string]any) uuid.UUID {
	value := strings.TrimSpace(input)
	if value == "" {
		return uuid.Nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		*data = ensure(*data)
		(*data)[label+"_ref"] = value
		return uuid.Nil
	}
	return id
}

func ensure(data map[string]any) map[string]any {
	if data == nil {
		return map[string]any{}
	}
	return data
}

func cloneMap(src map[string]any) map[string]any {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
