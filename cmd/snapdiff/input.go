package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/internal/hydrate"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// readDocument loads a JSON or YAML snapshot file into a normalised document.
func readDocument(cmd *cobra.Command, ctx hydrate.Context, path string) (snapdiff.Document, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	decoder := hydrate.NewDecoder(
		hydrate.WithUseNumber(),
		hydrate.WithDropFields(stringArray(cmd, dropFlagName, dropFieldsKey)...),
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		var payload map[string]any
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
		}
		if payload == nil {
			payload = map[string]any{}
		}
		return decoder.DecodeValue(ctx, payload)
	default:
		return decoder.Decode(ctx, raw)
	}
}

func loadHierarchy() (snapdiff.Hierarchy, error) {
	path := strings.TrimSpace(viper.GetString(hierarchyFileKey))
	if path == "" {
		return nil, nil
	}
	return snapdiff.LoadHierarchyFile(path)
}

func loadFilter(cmd *cobra.Command) (*snapdiff.Filter, error) {
	rules := stringArray(cmd, ruleFlagName, rulesKey)
	if len(rules) == 0 {
		return nil, nil
	}
	evaluator, err := snapdiff.NewEvaluator(viper.GetString(rulesEngineKey), snapdiff.NewMemoryProgramCache(), nil)
	if err != nil {
		return nil, err
	}
	return snapdiff.NewFilter(evaluator, rules...)
}

// ruleArgs returns the shared rule args and the args configured for kind.
func ruleArgs(kind string) (shared, own map[string]any) {
	shared = viper.GetStringMap(ruleArgsKey)
	if kind != "" {
		own = viper.GetStringMap(kindArgsKey + "." + kind)
	}
	return shared, own
}
