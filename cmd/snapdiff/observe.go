package main

import (
	"context"
	"log/slog"

	"github.com/goliatone/go-snapdiff/internal/hydrate"
	"github.com/goliatone/go-snapdiff/pkg/activity"
	"github.com/goliatone/go-snapdiff/pkg/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const observeLongDescription = `Record a new snapshot of an entity in the local store and print what
changed since the previous one. The first snapshot of an entity is stored
without a diff.`

func newObserveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "observe <kind> <id> <snapshot>",
		Short: "Store a snapshot and diff it against the previous one",
		Long:  observeLongDescription,
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runObserve(cmd, state.Ref{Kind: args[0], ID: args[1]}, args[2])
		},
	}

	return cmd
}

func runObserve(cmd *cobra.Command, ref state.Ref, path string) error {
	hierarchy, err := loadHierarchy()
	if err != nil {
		return err
	}
	filter, err := loadFilter(cmd)
	if err != nil {
		return err
	}
	current, err := readDocument(cmd, hydrate.Context{Kind: ref.Kind, ID: ref.ID}, path)
	if err != nil {
		return err
	}

	store, err := state.OpenPebbleStore(viper.GetString(storePathKey), nil)
	if err != nil {
		return err
	}
	defer store.Close()

	// Activity is written to the log; hosts wire real sinks through the
	// library.
	logHook := activity.HookFunc(func(ctx context.Context, event activity.Event) error {
		slog.InfoContext(ctx, "activity",
			"verb", event.Verb,
			"object", event.ObjectType+"/"+event.ObjectID,
			"snapshot_id", event.SnapshotID,
			"channel", event.Channel,
			"path", event.Metadata["path"],
		)
		return nil
	})
	emitter := activity.NewEmitter(activity.Hooks{logHook}, activity.Config{
		Enabled: viper.GetBool(activityKey),
		Channel: viper.GetString(channelKey),
		ActorID: "snapdiff-cli",
	})

	shared, own := ruleArgs(ref.Kind)
	tracker, err := state.NewTracker(store,
		state.WithHierarchy(ref.Kind, hierarchy),
		state.WithFilter("", filter),
		state.WithRuleArgs("", shared),
		state.WithRuleArgs(ref.Kind, own),
		state.WithEmitter(emitter),
		state.WithLogger(slog.Default()),
	)
	if err != nil {
		return err
	}

	obs, err := tracker.Observe(cmd.Context(), ref, current)
	if err != nil {
		return err
	}

	switch {
	case obs.Initial:
		cmd.Printf("stored first snapshot %s for %s\n", obs.SnapshotID, ref)
		return nil
	case obs.Unchanged:
		cmd.Printf("%s unchanged since snapshot %s\n", ref, obs.SnapshotID)
		return nil
	}

	if err := writeRecords(cmd.OutOrStdout(), viper.GetString(outputFormatKey), obs.Records); err != nil {
		return err
	}
	if obs.Suppressed > 0 {
		cmd.PrintErrf("%d record(s) suppressed\n", obs.Suppressed)
	}
	if obs.HierarchyErr != nil {
		cmd.PrintErrf("warning: %v\n", obs.HierarchyErr)
	}
	return nil
}
