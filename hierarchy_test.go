package snapdiff

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestParseLayers(t *testing.T) {
	cases := []struct {
		name    string
		tokens  []string
		want    []Layer
		wantErr error
	}{
		{name: "empty", tokens: nil, want: []Layer{}},
		{name: "list", tokens: []string{"list"}, want: []Layer{List()}},
		{name: "list dict", tokens: []string{"list", "dict", "name"}, want: []Layer{List(), Dict("name")}},
		{name: "case and spaces", tokens: []string{" LIST ", "Dict", " tier "}, want: []Layer{List(), Dict("tier")}},
		{name: "dict without key", tokens: []string{"list", "dict"}, wantErr: ErrInvalidHierarchy},
		{name: "dict with blank key", tokens: []string{"dict", " "}, wantErr: ErrInvalidHierarchy},
		{name: "unknown token", tokens: []string{"set"}, wantErr: ErrUnsupportedLayer},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseLayers(tc.tokens)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(tc.want, got) {
				t.Fatalf("layers mismatch: want %v, got %v", tc.want, got)
			}
		})
	}
}

func TestMustParseLayersPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for invalid tokens")
		}
	}()
	MustParseLayers("dict")
}

func TestHierarchyValidate(t *testing.T) {
	if err := (Hierarchy{"a": {List(), Dict("b")}}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := (Hierarchy{"a": {{Kind: LayerDict}}}).Validate(); !errors.Is(err, ErrInvalidHierarchy) {
		t.Fatalf("expected invalid hierarchy for empty dict key, got %v", err)
	}
	err := (Hierarchy{"a": {{Kind: LayerKind(9)}}}).Validate()
	var unsupported *UnsupportedLayerError
	if !errors.As(err, &unsupported) || unsupported.Field != "a" {
		t.Fatalf("expected unsupported layer for field a, got %v", err)
	}
}

func TestHierarchyJSONRoundTrip(t *testing.T) {
	payload := []byte(`{
		"officers": ["list", "dict", "name"],
		"otcAward": [{"dict": "best50"}],
		"notes": [{"list": true}]
	}`)

	var hierarchy Hierarchy
	if err := json.Unmarshal(payload, &hierarchy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Hierarchy{
		"officers": {List(), Dict("name")},
		"otcAward": {Dict("best50")},
		"notes":    {List()},
	}
	if !reflect.DeepEqual(want, hierarchy) {
		t.Fatalf("hierarchy mismatch: want %v, got %v", want, hierarchy)
	}

	encoded, err := json.Marshal(hierarchy)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var again Hierarchy
	if err := json.Unmarshal(encoded, &again); err != nil {
		t.Fatalf("unmarshal encoded: %v", err)
	}
	if !reflect.DeepEqual(want, again) {
		t.Fatalf("round trip mismatch: want %v, got %v", want, again)
	}
}

func TestHierarchyJSONReportsField(t *testing.T) {
	var hierarchy Hierarchy
	err := json.Unmarshal([]byte(`{"officers": ["list", "dict"]}`), &hierarchy)
	var invalid *InvalidHierarchyError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidHierarchyError, got %v", err)
	}
	if invalid.Field != "officers" {
		t.Fatalf("expected field officers, got %q", invalid.Field)
	}
}

func TestHierarchyYAML(t *testing.T) {
	payload := []byte(`
officers: [list, dict, name]
securityTiers:
  - list
  - dict: tierName
`)
	var hierarchy Hierarchy
	if err := yaml.Unmarshal(payload, &hierarchy); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Hierarchy{
		"officers":      {List(), Dict("name")},
		"securityTiers": {List(), Dict("tierName")},
	}
	if !reflect.DeepEqual(want, hierarchy) {
		t.Fatalf("hierarchy mismatch: want %v, got %v", want, hierarchy)
	}
	if tokens := hierarchy.Tokens("securityTiers"); !reflect.DeepEqual(tokens, []string{"list", "dict", "tierName"}) {
		t.Fatalf("unexpected tokens: %v", tokens)
	}
}

func TestLoadHierarchyFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "company.yaml")
	if err := os.WriteFile(yamlPath, []byte("notes: [list]\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	jsonPath := filepath.Join(dir, "company.json")
	if err := os.WriteFile(jsonPath, []byte(`{"notes": ["list"]}`), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, path := range []string{yamlPath, jsonPath} {
		hierarchy, err := LoadHierarchyFile(path)
		if err != nil {
			t.Fatalf("load %s: %v", path, err)
		}
		if !reflect.DeepEqual(hierarchy, Hierarchy{"notes": {List()}}) {
			t.Fatalf("unexpected hierarchy from %s: %v", path, hierarchy)
		}
	}

	if _, err := LoadHierarchyFile(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestHierarchyFieldsAndClone(t *testing.T) {
	hierarchy := Hierarchy{"b": {List()}, "a": {Dict("x")}}
	if fields := hierarchy.Fields(); !reflect.DeepEqual(fields, []string{"a", "b"}) {
		t.Fatalf("unexpected fields: %v", fields)
	}
	clone := hierarchy.Clone()
	clone["a"][0] = Dict("y")
	if hierarchy["a"][0].Key != "x" {
		t.Fatalf("clone shares layers with original")
	}
	if _, ok := Hierarchy(nil).Layers("a"); ok {
		t.Fatalf("expected nil hierarchy to have no layers")
	}
}
