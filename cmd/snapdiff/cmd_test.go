package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const latestCompany = `{
  "email": "ir@smc.example",
  "officers": [{"name": "Erik Blum", "title": "CEO"}, {"name": "Jane Doe", "title": "CFO"}],
  "notes": ["shell risk"],
  "fetchedAt": "2024-05-01T00:00:00Z"
}`

const currentCompany = `{
  "officers": [{"name": "Eric Blum", "title": "CEO"}],
  "notes": ["shell risk", "late filer"],
  "stam": 5,
  "fetchedAt": "2024-05-02T00:00:00Z"
}`

const companyHierarchy = `officers: [list, dict, name]
notes: [list]
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	errOut := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(append(args, "--log-file", filepath.Join(t.TempDir(), "snapdiff.log")))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

type recordOutput struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
	Old  any    `json:"old"`
	New  any    `json:"new"`
}

func TestDiffCmd_JSONOutputWithHierarchy(t *testing.T) {
	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.json", latestCompany)
	current := writeFile(t, dir, "current.json", currentCompany)
	hierarchy := writeFile(t, dir, "hierarchy.yaml", companyHierarchy)

	out, _, err := execute(t, "diff", latest, current,
		"--hierarchy", hierarchy, "--format", "json", "--drop", "fetchedAt")
	require.NoError(t, err)

	var records []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Equal(t, []recordOutput{
		{Kind: "remove", Path: "email", Old: "ir@smc.example"},
		{Kind: "add", Path: "notes", New: "late filer"},
		{Kind: "change", Path: "officers.name", Old: "Erik Blum", New: "Eric Blum"},
		{Kind: "remove", Path: "officers.name", Old: "Jane Doe"},
		{Kind: "add", Path: "stam", New: 5.0},
	}, records)
}

func TestDiffCmd_TableOutputAndYAMLInput(t *testing.T) {
	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.yaml", "tier: OTCQX\nshares: 10\n")
	current := writeFile(t, dir, "current.yaml", "tier: OTCQB\nshares: 10\n")

	out, _, err := execute(t, "diff", latest, current)
	require.NoError(t, err)

	assert.Contains(t, out, "tier")
	assert.Contains(t, out, "OTCQX")
	assert.Contains(t, out, "OTCQB")
	assert.NotContains(t, out, "shares")
}

func TestDiffCmd_RulesSuppressRecords(t *testing.T) {
	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.json", `{"tier": "OTCQX", "email": "a@x"}`)
	current := writeFile(t, dir, "current.json", `{"tier": "Pink Current", "email": "b@x"}`)

	out, errOut, err := execute(t, "diff", latest, current, "--format", "json",
		"--rule", `field == "tier" && rank(newValue, "Pink Current", "OTCQB", "OTCQX") < rank(oldValue, "Pink Current", "OTCQB", "OTCQX")`)
	require.NoError(t, err)

	var records []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "email", records[0].Path)
	assert.Contains(t, errOut, "1 record(s) suppressed")
}

func TestDiffCmd_RuleArgsFromConfig(t *testing.T) {
	viper.Set(ruleArgsKey, map[string]any{"tiers": []any{"Pink Current", "OTCQB", "OTCQX"}, "floor": 1})
	viper.Set(kindArgsKey, map[string]any{"company": map[string]any{"floor": 2}})
	t.Cleanup(func() {
		viper.Set(ruleArgsKey, map[string]any{})
		viper.Set(kindArgsKey, map[string]any{})
	})

	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.json", `{"tier": "OTCQX"}`)
	current := writeFile(t, dir, "current.json", `{"tier": "OTCQB"}`)
	rule := `rank(newValue, args.tiers) < args.floor`

	out, errOut, err := execute(t, "diff", latest, current, "--format", "json", "--kind", "company", "--rule", rule)
	require.NoError(t, err)
	assert.JSONEq(t, "[]", out)
	assert.Contains(t, errOut, "1 record(s) suppressed")

	out, _, err = execute(t, "diff", latest, current, "--format", "json", "--kind", "fund", "--rule", rule)
	require.NoError(t, err)
	var records []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "tier", records[0].Path)
}

func TestDiffCmd_InvalidHierarchyPrintsCoarseRecordAndFails(t *testing.T) {
	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.json", `{"officers": ["Erik Blum"], "zeta": 1}`)
	current := writeFile(t, dir, "current.json", `{"officers": ["Eric Blum"], "zeta": 2}`)
	hierarchy := writeFile(t, dir, "hierarchy.json", `{"officers": ["list", "dict", "name"]}`)

	out, _, err := execute(t, "diff", latest, current, "--hierarchy", hierarchy, "--format", "json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid hierarchy")

	var records []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "officers", records[0].Path)
	assert.Equal(t, "change", records[0].Kind)
}

func TestDiffCmd_RejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	latest := writeFile(t, dir, "latest.json", `[1, 2]`)
	current := writeFile(t, dir, "current.json", `{}`)

	_, _, err := execute(t, "diff", latest, current)
	require.Error(t, err)

	_, _, err = execute(t, "diff", latest)
	require.Error(t, err)

	_, _, err = execute(t, "diff", current, current, "--format", "xml")
	require.Error(t, err)
}

func TestObserveAndHistoryCmd(t *testing.T) {
	dir := t.TempDir()
	store := filepath.Join(dir, "store")
	hierarchy := writeFile(t, dir, "hierarchy.yaml", companyHierarchy)
	first := writeFile(t, dir, "first.json", latestCompany)
	second := writeFile(t, dir, "second.json", currentCompany)

	out, _, err := execute(t, "observe", "company", "SMCE", first, "--store", store, "--hierarchy", hierarchy, "--drop", "fetchedAt")
	require.NoError(t, err)
	assert.Contains(t, out, "stored first snapshot")

	out, _, err = execute(t, "observe", "company", "SMCE", first, "--store", store, "--hierarchy", hierarchy, "--drop", "fetchedAt")
	require.NoError(t, err)
	assert.Contains(t, out, "unchanged")

	out, _, err = execute(t, "observe", "company", "SMCE", second, "--store", store,
		"--hierarchy", hierarchy, "--drop", "fetchedAt", "--format", "json")
	require.NoError(t, err)
	var records []recordOutput
	require.NoError(t, json.Unmarshal([]byte(out), &records))
	assert.Len(t, records, 5)

	out, _, err = execute(t, "history", "company", "SMCE", "--store", store, "--format", "json")
	require.NoError(t, err)
	var entries []struct {
		SnapshotID         string         `json:"snapshot_id"`
		PreviousSnapshotID string         `json:"previous_snapshot_id"`
		Records            []recordOutput `json:"records"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].PreviousSnapshotID)
	assert.Len(t, entries[0].Records, 5)

	out, _, err = execute(t, "history", "company", "OTHER", "--store", store)
	require.NoError(t, err)
	assert.Contains(t, out, "no recorded changes")
}

func TestVersionCmd_Output(t *testing.T) {
	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.NoError(t, err)

	output := out.String()
	if strings.Contains(output, "version: unknown") {
		assert.Contains(t, output, "version: unknown")
		return
	}

	assert.Contains(t, output, "snapdiff version")
	assert.Contains(t, output, "go version")
}

func TestParseSlogLevel(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
	}{
		{"empty uses default", "", "INFO"},
		{"debug", "debug", "DEBUG"},
		{"warning alias", "Warning", "WARN"},
		{"numeric", "8", "ERROR"},
		{"garbage uses default", "loud", "INFO"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseSlogLevel(tt.value, 0).String())
		})
	}
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "-", formatValue(nil))
	assert.Equal(t, "5", formatValue(5.0))
	assert.Equal(t, "0.25", formatValue(0.25))
	assert.Equal(t, `{"name":"X"}`, formatValue(map[string]any{"name": "X"}))
}
