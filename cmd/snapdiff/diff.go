package main

import (
	"errors"
	"log/slog"
	"time"

	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/internal/hydrate"
	"github.com/goliatone/go-snapdiff/internal/layering"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const diffLongDescription = `Compare two snapshot files (JSON or YAML) and print the differences.

The first file is the latest known snapshot, the second the current one.
When a field does not fit its declared hierarchy the field is reported as a
single coarse change, the records are printed and the command exits non-zero.`

func newDiffCmd() *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "diff <latest> <current>",
		Short: "Diff two snapshot files",
		Long:  diffLongDescription,
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd, kind, args[0], args[1])
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "entity kind exposed to rules as entity.kind")

	return cmd
}

func runDiff(cmd *cobra.Command, kind, latestPath, currentPath string) error {
	hierarchy, err := loadHierarchy()
	if err != nil {
		return err
	}
	filter, err := loadFilter(cmd)
	if err != nil {
		return err
	}

	latest, err := readDocument(cmd, hydrate.Context{Kind: kind, ID: latestPath}, latestPath)
	if err != nil {
		return err
	}
	current, err := readDocument(cmd, hydrate.Context{Kind: kind, ID: currentPath}, currentPath)
	if err != nil {
		return err
	}

	engine := snapdiff.New(snapdiff.WithLogger(snapdiff.NewSlogLogger(slog.Default())))
	records, diffErr := engine.GetDiffs(latest, current, hierarchy)
	if diffErr != nil && !errors.Is(diffErr, snapdiff.ErrInvalidHierarchy) {
		return diffErr
	}

	shared, own := ruleArgs(kind)
	now := time.Now()
	kept, suppressed, err := filter.Apply(snapdiff.RuleContext{
		Entity: map[string]any{"kind": kind},
		Now:    &now,
		Args:   layering.Merge(own, shared),
	}, records)
	if err != nil {
		return err
	}

	if err := writeRecords(cmd.OutOrStdout(), viper.GetString(outputFormatKey), kept); err != nil {
		return err
	}
	if suppressed > 0 {
		cmd.PrintErrf("%d record(s) suppressed\n", suppressed)
	}
	slog.Info("diff complete", "latest", latestPath, "current", currentPath, "records", len(kept), "suppressed", suppressed)

	return diffErr
}
