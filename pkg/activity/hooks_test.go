package activity

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNormalizeEventTrimsClonesAndDefaults(t *testing.T) {
	meta := map[string]any{"k": "v"}
	recipients := []string{" a ", "b "}
	evt := Event{
		Verb:       " snapshot.field.changed ",
		ActorID:    " actor ",
		TenantID:   " tenant ",
		ObjectType: " company ",
		ObjectID:   " SMCE ",
		SnapshotID: " snap-1 ",
		Channel:    " snapdiff ",
		Recipients: recipients,
		Metadata:   meta,
	}

	got := NormalizeEvent(evt)

	if got.Verb != "snapshot.field.changed" || got.ObjectType != "company" || got.ObjectID != "SMCE" {
		t.Fatalf("unexpected normalized fields: %+v", got)
	}
	if got.ActorID != "actor" || got.TenantID != "tenant" || got.Channel != "snapdiff" || got.SnapshotID != "snap-1" {
		t.Fatalf("unexpected trimming: %+v", got)
	}
	if got.OccurredAt.IsZero() {
		t.Fatalf("expected OccurredAt to be set")
	}
	if got.Metadata["k"] != "v" {
		t.Fatalf("expected metadata value preserved: %+v", got.Metadata)
	}
	got.Metadata["k"] = "changed"
	if evt.Metadata["k"] != "v" {
		t.Fatalf("expected original metadata untouched: %+v", evt.Metadata)
	}
	got.Recipients[0] = "changed"
	if recipients[0] != " a " {
		t.Fatalf("expected original recipients untouched: %+v", recipients)
	}
}

func TestHooksNotifyShortCircuitsMissingRequired(t *testing.T) {
	hooks := Hooks{&CaptureHook{}}
	err := hooks.Notify(context.Background(), Event{})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	capture := hooks[0].(*CaptureHook)
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured, got %d", len(capture.Events))
	}
}

func TestHooksNotifyFanOutAndJoinErrors(t *testing.T) {
	capture := &CaptureHook{}
	boom1 := errors.New("boom1")
	boom2 := errors.New("boom2")
	var ctxSeen bool
	hooks := Hooks{
		HookFunc(func(ctx context.Context, event Event) error {
			if ctx != nil {
				ctxSeen = true
			}
			return nil
		}),
		capture,
		HookFunc(func(_ context.Context, _ Event) error { return boom1 }),
		nil,
		HookFunc(func(_ context.Context, _ Event) error { return boom2 }),
	}

	err := hooks.Notify(nil, Event{Verb: VerbFieldChanged, ObjectType: "company", ObjectID: "SMCE"})
	if err == nil || !errors.Is(err, boom1) || !errors.Is(err, boom2) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if !ctxSeen {
		t.Fatalf("expected context fallback to be non-nil")
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected event to be captured once, got %d", len(capture.Events))
	}
}

func TestEmitterDisabledAndEnabled(t *testing.T) {
	capture := &CaptureHook{}

	disabled := NewEmitter(Hooks{capture}, Config{Enabled: false})
	if disabled.Enabled() {
		t.Fatalf("expected emitter to be disabled")
	}
	if err := disabled.Emit(context.Background(), Event{Verb: VerbFieldAdded, ObjectType: "company", ObjectID: "SMCE"}); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(capture.Events) != 0 {
		t.Fatalf("expected no events captured when disabled")
	}

	enabled := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: ""})
	if !enabled.Enabled() {
		t.Fatalf("expected emitter to be enabled")
	}
	if err := enabled.Emit(context.Background(), Event{Verb: VerbFieldAdded, ObjectType: "company", ObjectID: "SMCE"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	if len(capture.Events) != 1 {
		t.Fatalf("expected one event captured, got %d", len(capture.Events))
	}
	if capture.Events[0].Channel != DefaultChannel {
		t.Fatalf("expected default channel applied, got %q", capture.Events[0].Channel)
	}
}

func TestEmitterPreservesExplicitChannel(t *testing.T) {
	capture := &CaptureHook{}
	emitter := NewEmitter(Hooks{capture}, Config{Enabled: true, Channel: "default"})

	err := emitter.Emit(context.Background(), Event{
		Verb:       VerbFieldAdded,
		ObjectType: "company",
		ObjectID:   "SMCE",
		Channel:    "custom",
		OccurredAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}
	if capture.Events[0].Channel != "custom" {
		t.Fatalf("expected explicit channel preserved, got %q", capture.Events[0].Channel)
	}
	if capture.Events[0].OccurredAt != (time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected occurred_at preserved, got %v", capture.Events[0].OccurredAt)
	}
}

func TestEmitterStampsDefaultActorAndEmitsAll(t *testing.T) {
	capture := &CaptureHook{}
	failing := HookFunc(func(_ context.Context, event Event) error {
		if event.Verb == VerbFieldRemoved {
			return errors.New("sink down")
		}
		return nil
	})
	emitter := NewEmitter(Hooks{capture, failing}, Config{Enabled: true, ActorID: " tracker "})

	err := emitter.EmitAll(context.Background(), []Event{
		{Verb: VerbFieldRemoved, ObjectType: "company", ObjectID: "SMCE"},
		{Verb: VerbFieldAdded, ObjectType: "company", ObjectID: "SMCE", ActorID: "someone"},
	})
	if err == nil {
		t.Fatalf("expected first error to surface")
	}
	verbs := capture.Verbs()
	if len(verbs) != 2 || verbs[0] != VerbFieldRemoved || verbs[1] != VerbFieldAdded {
		t.Fatalf("expected both events delivered, got %v", verbs)
	}
	if capture.Events[0].ActorID != "tracker" || capture.Events[1].ActorID != "someone" {
		t.Fatalf("unexpected actors: %q %q", capture.Events[0].ActorID, capture.Events[1].ActorID)
	}
}
