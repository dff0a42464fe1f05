package usersink_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-snapdiff/pkg/activity"
	"github.com/goliatone/go-snapdiff/pkg/activity/usersink"
	usertypes "github.com/goliatone/go-users/pkg/types"
	"github.com/google/uuid"
)

type recordingSink struct {
	records []usertypes.ActivityRecord
	err     error
}

func (s *recordingSink) Log(_ context.Context, record usertypes.ActivityRecord) error {
	s.records = append(s.records, record)
	return s.err
}

func TestHookNotifyMapsRecordEvent(t *testing.T) {
	sink := &recordingSink{}
	userID := uuid.New()
	hook := usersink.Hook{Sink: sink, UserID: userID.String()}

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	actorID := uuid.New()
	tenantID := uuid.New()

	event := activity.BuildRecordEvent(activity.RecordEventInput{
		ActorID:    actorID.String(),
		TenantID:   tenantID.String(),
		EntityKind: "company",
		EntityID:   "SMCE",
		SnapshotID: "snap-7",
		Channel:    "watchlist",
		Recipients: []string{"desk@example.com"},
		Path:       "officers.name",
		DiffKind:   "remove",
		OldValue:   "Jane Doe",
		OccurredAt: now,
	})

	if err := hook.Notify(context.Background(), event); err != nil {
		t.Fatalf("notify: %v", err)
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	record := sink.records[0]
	if record.ActorID != actorID {
		t.Fatalf("expected actor %s got %s", actorID, record.ActorID)
	}
	if record.UserID != userID {
		t.Fatalf("expected user %s got %s", userID, record.UserID)
	}
	if record.TenantID != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, record.TenantID)
	}
	if record.Verb != activity.VerbFieldRemoved || record.ObjectType != "company" || record.ObjectID != "SMCE" {
		t.Fatalf("unexpected record payload: %+v", record)
	}
	if record.Channel != "watchlist" {
		t.Fatalf("expected channel watchlist got %q", record.Channel)
	}
	if !record.OccurredAt.Equal(now) {
		t.Fatalf("expected occurred_at %v got %v", now, record.OccurredAt)
	}
	if record.Data["snapshot_id"] != "snap-7" {
		t.Fatalf("expected snapshot_id metadata got %v", record.Data["snapshot_id"])
	}
	if record.Data["path"] != "officers.name" || record.Data["old_value"] != "Jane Doe" {
		t.Fatalf("expected record metadata passthrough got %v", record.Data)
	}
	recipients, ok := record.Data["recipients"].([]string)
	if !ok || len(recipients) != 1 || recipients[0] != "desk@example.com" {
		t.Fatalf("expected recipients metadata got %v", record.Data["recipients"])
	}
}

func TestHookNotifyKeepsNonUUIDActor(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbFieldAdded,
		ActorID:    "tracker",
		ObjectType: "company",
		ObjectID:   "SMCE",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	record := sink.records[0]
	if record.ActorID != uuid.Nil {
		t.Fatalf("expected nil actor uuid, got %s", record.ActorID)
	}
	if record.Data["actor_ref"] != "tracker" {
		t.Fatalf("expected actor_ref metadata, got %v", record.Data)
	}
	if _, ok := record.Data["user_ref"]; ok {
		t.Fatalf("blank user must not be recorded: %v", record.Data)
	}
}

func TestHookNotifySkipsMissingVerb(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	_ = hook.Notify(context.Background(), activity.Event{})

	if len(sink.records) != 0 {
		t.Fatalf("expected no records for empty event, got %d", len(sink.records))
	}
}

func TestHookNotifyDefaultsTimestamp(t *testing.T) {
	sink := &recordingSink{}
	hook := usersink.Hook{Sink: sink}

	err := hook.Notify(context.Background(), activity.Event{
		Verb:       activity.VerbFieldChanged,
		ObjectType: "company",
		ObjectID:   "SMCE",
	})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if len(sink.records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(sink.records))
	}
	if sink.records[0].OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be defaulted")
	}
}
