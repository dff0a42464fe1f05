package main

import (
	"github.com/goliatone/go-snapdiff/pkg/state"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <kind> <id>",
		Short: "Print the recorded diffs of an entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref := state.Ref{Kind: args[0], ID: args[1]}
			store, err := state.OpenPebbleStore(viper.GetString(storePathKey), nil)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Entries(cmd.Context(), ref, viper.GetInt(historyLimitKey))
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				cmd.Printf("no recorded changes for %s\n", ref)
				return nil
			}
			return writeEntries(cmd.OutOrStdout(), viper.GetString(outputFormatKey), entries)
		},
	}
	cmd.Flags().IntP(limitFlagName, "n", viper.GetInt(historyLimitKey), "number of most recent entries to print (0 for all)")
	bindFlagToConfig(cmd.Flags().Lookup(limitFlagName), historyLimitKey)

	return cmd
}
