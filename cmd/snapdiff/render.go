package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	snapdiff "github.com/goliatone/go-snapdiff"
	"github.com/goliatone/go-snapdiff/pkg/state"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

const (
	formatTable = "table"
	formatJSON  = "json"
	formatYAML  = "yaml"
)

// recordView is the serialised form of a record; absent sides are omitted.
type recordView struct {
	Kind string `json:"kind" yaml:"kind"`
	Path string `json:"path" yaml:"path"`
	Old  any    `json:"old,omitempty" yaml:"old,omitempty"`
	New  any    `json:"new,omitempty" yaml:"new,omitempty"`
}

func viewRecords(records []snapdiff.Record) []recordView {
	views := make([]recordView, len(records))
	for i, record := range records {
		views[i] = recordView{Kind: record.Kind.String(), Path: record.Path.String(), Old: record.Old, New: record.New}
	}
	return views
}

func writeRecords(w io.Writer, format string, records []snapdiff.Record) error {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatTable:
		writeRecordTable(w, records)
		return nil
	case formatJSON:
		return writeJSON(w, viewRecords(records))
	case formatYAML:
		return writeYAML(w, viewRecords(records))
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeRecordTable(w io.Writer, records []snapdiff.Record) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Kind", "Path", "Old", "New"})
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_LEFT,
	})
	for _, record := range records {
		table.Append([]string{record.Kind.String(), record.Path.String(), formatValue(record.Old), formatValue(record.New)})
	}
	table.SetFooter([]string{"", "", "records", strconv.Itoa(len(records))})
	table.Render()
}

type entryView struct {
	SnapshotID         string       `json:"snapshot_id" yaml:"snapshot_id"`
	PreviousSnapshotID string       `json:"previous_snapshot_id,omitempty" yaml:"previous_snapshot_id,omitempty"`
	ObservedAt         string       `json:"observed_at" yaml:"observed_at"`
	Suppressed         int          `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Error              string       `json:"error,omitempty" yaml:"error,omitempty"`
	Records            []recordView `json:"records" yaml:"records"`
}

func writeEntries(w io.Writer, format string, entries []state.Entry) error {
	views := make([]entryView, len(entries))
	for i, entry := range entries {
		views[i] = entryView{
			SnapshotID:         entry.SnapshotID,
			PreviousSnapshotID: entry.PreviousSnapshotID,
			ObservedAt:         entry.ObservedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
			Suppressed:         entry.Suppressed,
			Error:              entry.Error,
			Records:            viewRecords(entry.Records),
		}
	}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", formatTable:
		for _, view := range views {
			fmt.Fprintf(w, "snapshot %s (previous %s) observed %s\n", view.SnapshotID, view.PreviousSnapshotID, view.ObservedAt)
			if view.Error != "" {
				fmt.Fprintf(w, "  warning: %s\n", view.Error)
			}
		}
		table := tablewriter.NewWriter(w)
		table.SetHeader([]string{"Snapshot", "Kind", "Path", "Old", "New"})
		table.SetBorder(false)
		table.SetCenterSeparator("")
		for i, entry := range entries {
			for _, record := range entry.Records {
				table.Append([]string{views[i].SnapshotID, record.Kind.String(), record.Path.String(), formatValue(record.Old), formatValue(record.New)})
			}
		}
		table.Render()
		return nil
	case formatJSON:
		return writeJSON(w, views)
	case formatYAML:
		return writeYAML(w, views)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func writeJSON(w io.Writer, value any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeYAML(w io.Writer, value any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(value); err != nil {
		return err
	}
	return encoder.Close()
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "-"
	case string:
		return typed
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		raw, err := json.Marshal(typed)
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(raw)
	}
}
