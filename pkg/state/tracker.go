package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/document"
	"github.com/goliatone/go-snapdiff/internal/layering"
	"github.com/goliatone/go-snapdiff/pkg/activity"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Observation is the outcome of one Tracker.Observe call.
type Observation struct {
	Ref                Ref
	SnapshotID         string
	PreviousSnapshotID string
	Records            []snapdiff.Record
	Suppressed         int
	// Initial is set when no previous snapshot existed; nothing was diffed.
	Initial bool
	// Unchanged is set when the fingerprint matched the stored snapshot;
	// nothing was saved.
	Unchanged bool
	// HierarchyErr holds the InvalidHierarchyError of a field whose declared
	// hierarchy did not fit the data. Records then carries the coarse record
	// for that field and the snapshot is still saved.
	HierarchyErr error
	Meta         Meta
}

// Input is one entity to observe in ObserveAll.
type Input struct {
	Ref      Ref
	Document snapdiff.Document
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// Tracker runs the diff engine against the last stored snapshot of an
// entity every time a new one is observed.
type Tracker struct {
	store       Store
	log         DiffLog
	engine      *snapdiff.Engine
	hierarchies map[string]snapdiff.Hierarchy
	filters     map[string]*snapdiff.Filter
	args        map[string]map[string]any
	emitter     *activity.Emitter
	metrics     *Metrics
	logger      *slog.Logger
	now         func() time.Time
	newID       func() string
	concurrency int

	locks sync.Map
}

// WithDiffLog overrides the diff log. By default the store is used when it
// also implements DiffLog.
func WithDiffLog(log DiffLog) TrackerOption {
	return func(t *Tracker) {
		t.log = log
	}
}

// WithHierarchy registers the hierarchy used for entities of kind.
func WithHierarchy(kind string, hierarchy snapdiff.Hierarchy) TrackerOption {
	return func(t *Tracker) {
		t.hierarchies[kind] = hierarchy.Clone()
	}
}

// WithFilter registers suppression rules for entities of kind. The empty
// kind applies to every kind without its own filter.
func WithFilter(kind string, filter *snapdiff.Filter) TrackerOption {
	return func(t *Tracker) {
		t.filters[kind] = filter
	}
}

// WithRuleArgs exposes args to suppression rules of kind as the `args`
// variable. Args registered for the empty kind are shared defaults; a kind's
// own args are merged over them.
func WithRuleArgs(kind string, args map[string]any) TrackerOption {
	return func(t *Tracker) {
		t.args[kind] = args
	}
}

// WithEmitter notifies the emitter of every kept record.
func WithEmitter(emitter *activity.Emitter) TrackerOption {
	return func(t *Tracker) {
		t.emitter = emitter
	}
}

// WithMetrics records observation counters.
func WithMetrics(metrics *Metrics) TrackerOption {
	return func(t *Tracker) {
		t.metrics = metrics
	}
}

// WithLogger sets the logger shared by the tracker and its engine.
func WithLogger(logger *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// WithSnapshotIDs overrides the snapshot id generator (uuid v4 by default).
func WithSnapshotIDs(newID func() string) TrackerOption {
	return func(t *Tracker) {
		if newID != nil {
			t.newID = newID
		}
	}
}

// WithConcurrency bounds how many observations ObserveAll runs at once.
func WithConcurrency(n int) TrackerOption {
	return func(t *Tracker) {
		if n > 0 {
			t.concurrency = n
		}
	}
}

// NewTracker builds a tracker around store.
func NewTracker(store Store, opts ...TrackerOption) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("state: store is required")
	}
	t := &Tracker{
		store:       store,
		hierarchies: map[string]snapdiff.Hierarchy{},
		filters:     map[string]*snapdiff.Filter{},
		args:        map[string]map[string]any{},
		logger:      slog.Default(),
		now:         time.Now,
		newID:       uuid.NewString,
		concurrency: defaultConcurrency,
	}
	if log, ok := store.(DiffLog); ok {
		t.log = log
	}
	for _, opt := range opts {
		if opt != nil {
			opt(t)
		}
	}
	for kind, hierarchy := range t.hierarchies {
		if err := hierarchy.Validate(); err != nil {
			return nil, fmt.Errorf("state: hierarchy for kind %q: %w", kind, err)
		}
	}
	t.engine = snapdiff.New(snapdiff.WithLogger(snapdiff.NewSlogLogger(t.logger)))
	return t, nil
}

// Observe diffs current against the stored snapshot of ref, saves current
// as the new latest snapshot and reports the kept records.
//
// Unsupported layers fail the observation without saving. An invalid
// hierarchy is reported through Observation.HierarchyErr and the snapshot
// is saved with the coarse record logged.
func (t *Tracker) Observe(ctx context.Context, ref Ref, current snapdiff.Document) (Observation, error) {
	obs := Observation{Ref: ref}
	if err := ctx.Err(); err != nil {
		return obs, err
	}
	key, err := ref.Identifier()
	if err != nil {
		return obs, err
	}

	unlock := t.lock(key)
	defer unlock()

	current = normalizeDocument(current)
	etag, err := Fingerprint(current)
	if err != nil {
		t.logger.DebugContext(ctx, "fingerprint unavailable", "ref", key, "error", err)
		etag = ""
	}

	latest, meta, found, err := t.store.Load(ctx, ref)
	if err != nil {
		t.metrics.observation(ref.Kind, OutcomeError)
		return obs, fmt.Errorf("state: load %s: %w", key, err)
	}

	now := t.now()
	if !found {
		saved, err := t.save(ctx, ref, current, Meta{SnapshotID: t.newID(), ETag: etag, UpdatedAt: now})
		if err != nil {
			return obs, err
		}
		obs.Initial = true
		obs.SnapshotID = saved.SnapshotID
		obs.Meta = saved
		t.metrics.observation(ref.Kind, OutcomeInitial)
		t.logger.InfoContext(ctx, "first snapshot stored", "ref", key, "snapshot_id", saved.SnapshotID)
		return obs, nil
	}

	obs.PreviousSnapshotID = meta.SnapshotID
	if etag != "" && etag == meta.ETag {
		obs.Unchanged = true
		obs.SnapshotID = meta.SnapshotID
		obs.Meta = meta
		t.metrics.observation(ref.Kind, OutcomeUnchanged)
		t.logger.DebugContext(ctx, "snapshot unchanged", "ref", key, "etag", etag)
		return obs, nil
	}

	records, diffErr := t.engine.GetDiffs(latest, current, t.hierarchies[ref.Kind])
	switch {
	case diffErr == nil:
	case errors.Is(diffErr, snapdiff.ErrInvalidHierarchy):
		obs.HierarchyErr = diffErr
		t.logger.WarnContext(ctx, "hierarchy does not fit snapshot, keeping coarse record",
			"ref", key, "error", diffErr)
	default:
		t.metrics.observation(ref.Kind, OutcomeError)
		return obs, fmt.Errorf("state: diff %s: %w", key, diffErr)
	}

	snapshotID := t.newID()
	kept, suppressed, err := t.filterFor(ref.Kind).Apply(snapdiff.RuleContext{
		Entity:   map[string]any{"kind": ref.Kind, "id": ref.ID},
		Now:      &now,
		Args:     layering.Merge(t.args[ref.Kind], t.args[""]),
		Metadata: map[string]any{"snapshot_id": snapshotID, "previous_snapshot_id": meta.SnapshotID},
	}, records)
	if err != nil {
		t.metrics.observation(ref.Kind, OutcomeError)
		return obs, fmt.Errorf("state: suppression rules for %s: %w", key, err)
	}

	saved, err := t.save(ctx, ref, current, Meta{
		SnapshotID: snapshotID,
		ETag:       etag,
		UpdatedAt:  now,
		Extra:      meta.Extra,
	})
	if err != nil {
		return obs, err
	}
	obs.SnapshotID = saved.SnapshotID
	obs.Meta = saved
	obs.Records = kept
	obs.Suppressed = suppressed

	if len(kept) > 0 || obs.HierarchyErr != nil {
		entry := Entry{
			Ref:                ref,
			SnapshotID:         snapshotID,
			PreviousSnapshotID: meta.SnapshotID,
			Records:            kept,
			Suppressed:         suppressed,
			ObservedAt:         now,
		}
		if obs.HierarchyErr != nil {
			entry.Error = obs.HierarchyErr.Error()
		}
		if err := t.appendEntry(ctx, entry); err != nil {
			t.metrics.observation(ref.Kind, OutcomeError)
			return obs, err
		}
	}

	t.emit(ctx, obs, now)

	outcome := OutcomeChanged
	switch {
	case obs.HierarchyErr != nil:
		outcome = OutcomeInvalidHierarchy
	case len(kept) == 0:
		outcome = OutcomeQuiet
	}
	t.metrics.observation(ref.Kind, outcome)
	t.metrics.records(ref.Kind, kept, suppressed)
	t.logger.InfoContext(ctx, "snapshot observed",
		"ref", key,
		"snapshot_id", snapshotID,
		"previous_snapshot_id", meta.SnapshotID,
		"records", len(kept),
		"suppressed", suppressed,
		"outcome", outcome,
	)
	return obs, nil
}

// ObserveAll observes inputs concurrently. Results are index aligned with
// inputs; the first error cancels the remaining observations.
func (t *Tracker) ObserveAll(ctx context.Context, inputs []Input) ([]Observation, error) {
	results := make([]Observation, len(inputs))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(t.concurrency)
	for i, input := range inputs {
		group.Go(func() error {
			obs, err := t.Observe(groupCtx, input.Ref, input.Document)
			results[i] = obs
			if err != nil {
				return fmt.Errorf("observe %s: %w", input.Ref, err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return results, fmt.Errorf("state: %w", err)
	}
	return results, nil
}

// History returns the newest limit diff log entries of ref, oldest first.
func (t *Tracker) History(ctx context.Context, ref Ref, limit int) ([]Entry, error) {
	if t.log == nil {
		return nil, fmt.Errorf("state: no diff log configured")
	}
	return t.log.Entries(ctx, ref, limit)
}

// Latest returns the stored snapshot of ref.
func (t *Tracker) Latest(ctx context.Context, ref Ref) (snapdiff.Document, Meta, bool, error) {
	return t.store.Load(ctx, ref)
}

func (t *Tracker) save(ctx context.Context, ref Ref, snapshot snapdiff.Document, meta Meta) (Meta, error) {
	saved, err := t.store.Save(ctx, ref, snapshot, meta)
	if err != nil {
		t.metrics.observation(ref.Kind, OutcomeError)
		return Meta{}, fmt.Errorf("state: save %s: %w", ref, err)
	}
	return mergeMeta(meta, saved), nil
}

func (t *Tracker) appendEntry(ctx context.Context, entry Entry) error {
	if t.log == nil {
		return nil
	}
	if err := t.log.Append(ctx, entry); err != nil {
		return fmt.Errorf("state: append diff log %s: %w", entry.Ref, err)
	}
	return nil
}

// emit never fails the observation; the snapshot is already saved.
func (t *Tracker) emit(ctx context.Context, obs Observation, now time.Time) {
	if !t.emitter.Enabled() || len(obs.Records) == 0 {
		return
	}
	events := make([]activity.Event, 0, len(obs.Records))
	for _, record := range obs.Records {
		events = append(events, activity.BuildRecordEvent(activity.RecordEventInput{
			EntityKind: obs.Ref.Kind,
			EntityID:   obs.Ref.ID,
			SnapshotID: obs.SnapshotID,
			Path:       record.Path.String(),
			DiffKind:   record.Kind.String(),
			OldValue:   record.Old,
			NewValue:   record.New,
			OccurredAt: now,
		}))
	}
	if err := t.emitter.EmitAll(ctx, events); err != nil {
		t.logger.WarnContext(ctx, "activity emission failed", "ref", obs.Ref.String(), "error", err)
	}
}

func (t *Tracker) filterFor(kind string) *snapdiff.Filter {
	if filter, ok := t.filters[kind]; ok {
		return filter
	}
	return t.filters[""]
}

func (t *Tracker) lock(key string) func() {
	value, _ := t.locks.LoadOrStore(key, &sync.Mutex{})
	mu := value.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func normalizeDocument(doc snapdiff.Document) snapdiff.Document {
	normalized, _ := document.Normalize(doc).(map[string]any)
	if normalized == nil {
		return snapdiff.Document{}
	}
	return normalized
}
