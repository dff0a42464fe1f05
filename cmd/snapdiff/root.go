package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const rootLongDescription = `snapdiff reports what changed between two snapshots of a document.

Fields listed in a hierarchy file are descended (lists element by element,
dicts key by key) so a change is reported at the most specific path instead
of as "the whole field changed". Everything else is compared as a whole.

Configuration is read from ./snapdiff.yaml and SNAPDIFF_* environment
variables; flags take precedence.`

const hierarchyHelp = `hierarchy file (YAML or JSON), e.g.

  officers: [list, dict, name]
  notes: [list]`

var logFileFlag string
var verboseFlag bool

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "snapdiff",
		Short:         "Structural diffs between document snapshots",
		Long:          rootLongDescription,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			configureLogger(logFileFlag, verboseFlag)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	configureRootFlags(cmd)

	cmd.AddCommand(newDiffCmd())
	cmd.AddCommand(newObserveCmd())
	cmd.AddCommand(newHistoryCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

func configureRootFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()

	flags.StringP(hierarchyFlagName, "H", viper.GetString(hierarchyFileKey), hierarchyHelp)
	bindFlagToConfig(flags.Lookup(hierarchyFlagName), hierarchyFileKey)

	flags.StringP(formatFlagName, "f", viper.GetString(outputFormatKey), "output format: table, json or yaml")
	bindFlagToConfig(flags.Lookup(formatFlagName), outputFormatKey)

	flags.StringArrayP(ruleFlagName, "r", viper.GetStringSlice(rulesKey), "suppression rule; records matching any rule are dropped (can be repeated)")
	bindFlagToConfig(flags.Lookup(ruleFlagName), rulesKey)

	flags.String(engineFlagName, viper.GetString(rulesEngineKey), "rule engine: expr, cel or js")
	bindFlagToConfig(flags.Lookup(engineFlagName), rulesEngineKey)

	flags.StringArray(dropFlagName, viper.GetStringSlice(dropFieldsKey), "drop a volatile field before diffing, dotted paths allowed (can be repeated)")
	bindFlagToConfig(flags.Lookup(dropFlagName), dropFieldsKey)

	flags.StringP(storeFlagName, "s", viper.GetString(storePathKey), "directory of the snapshot store used by observe and history")
	bindFlagToConfig(flags.Lookup(storeFlagName), storePathKey)

	flags.StringVar(&logFileFlag, logFileFlagName, "", "log file (default from log.filename)")
	flags.BoolVarP(&verboseFlag, verboseFlagName, "v", false, "debug logging")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// stringArray reads a repeatable flag when it was set on the command line and
// falls back to the config key otherwise. Viper re-parses string arrays as
// CSV, which would split rule expressions on their commas.
func stringArray(cmd *cobra.Command, flagName, key string) []string {
	if cmd.Flags().Changed(flagName) {
		values, err := cmd.Flags().GetStringArray(flagName)
		if err == nil {
			return values
		}
	}
	return viper.GetStringSlice(key)
}
