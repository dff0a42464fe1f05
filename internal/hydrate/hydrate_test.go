package hydrate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/goliatone/go-snapdiff/document"
)

func TestDecoderFromFixtures(t *testing.T) {
	fx := loadFixture(t, "hydrate_snapshots.json")

	for _, tc := range fx.Cases {
		tc := tc
		t.Run(tc.Name, func(t *testing.T) {
			decoder := NewDecoder(buildOptions(tc)...)

			result, err := decoder.Decode(Context{Kind: tc.Kind, ID: tc.ID}, tc.Input)

			if tc.ExpectErr != "" {
				if err == nil {
					t.Fatalf("expected error %q, got nil", tc.ExpectErr)
				}
				if !strings.Contains(err.Error(), tc.ExpectErr) {
					t.Fatalf("expected error containing %q, got %v", tc.ExpectErr, err)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected decode error: %v", err)
			}

			want := decodeExpect(t, tc)
			if !reflect.DeepEqual(want, result) {
				t.Fatalf("decoded document mismatch:\nwant: %#v\n got: %#v", want, result)
			}
		})
	}
}

func TestDecodeWithUseNumberKeepsNeighbouringIDsDistinct(t *testing.T) {
	decoder := NewDecoder(WithUseNumber())
	ctx := Context{Kind: "company", ID: "SMCE"}

	latest, err := decoder.Decode(ctx, []byte(`{"id": 9007199254740992}`))
	if err != nil {
		t.Fatalf("decode latest: %v", err)
	}
	current, err := decoder.Decode(ctx, []byte(`{"id": 9007199254740993}`))
	if err != nil {
		t.Fatalf("decode current: %v", err)
	}
	if document.Equal(latest, current) {
		t.Fatalf("expected ids to differ: %#v vs %#v", latest["id"], current["id"])
	}
}

func TestDecodeRejectsEmptyPayload(t *testing.T) {
	_, err := NewDecoder().Decode(Context{ID: "x"}, []byte("  "))
	if err == nil || !strings.Contains(err.Error(), "empty") {
		t.Fatalf("expected empty payload error, got %v", err)
	}
}

func TestDecodeValueNormalisesTypedCollections(t *testing.T) {
	doc, err := NewDecoder().DecodeValue(Context{Kind: "company", ID: "A"}, map[string]any{
		"tags":  []string{"x", "y"},
		"count": 3,
	})
	if err != nil {
		t.Fatalf("decode value: %v", err)
	}
	want := map[string]any{"tags": []any{"x", "y"}, "count": 3.0}
	if !reflect.DeepEqual(want, doc) {
		t.Fatalf("want %#v, got %#v", want, doc)
	}

	if _, err := NewDecoder().DecodeValue(Context{}, nil); err == nil {
		t.Fatalf("expected nil payload error")
	}
}

func buildOptions(tc fixtureCase) []DecoderOption {
	options := []DecoderOption{}

	for _, optName := range tc.Options {
		switch optName {
		case "use_number":
			options = append(options, WithUseNumber())
		}
	}

	if len(tc.DropFields) > 0 {
		options = append(options, WithDropFields(tc.DropFields...))
	}

	for _, hookName := range tc.PreHooks {
		switch hookName {
		case "officers_csv":
			options = append(options, WithPreHook(officersPreHook))
		}
	}

	for _, hookName := range tc.PostHooks {
		switch hookName {
		case "require_name":
			options = append(options, WithPostHook(requireNamePostHook))
		}
	}

	return options
}

func officersPreHook(_ Context, payload map[string]any) (map[string]any, error) {
	value, ok := payload["officers"].(string)
	if !ok {
		return payload, nil
	}

	officers := []any{}
	for _, part := range strings.Split(value, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			return nil, fmt.Errorf("invalid officers payload %q", value)
		}
		officers = append(officers, map[string]any{"name": name})
	}
	payload["officers"] = officers
	return payload, nil
}

func requireNamePostHook(ctx Context, doc map[string]any) error {
	if _, ok := doc["name"]; !ok {
		return errors.New("name is required")
	}
	return nil
}

type fixture struct {
	Description string        `json:"description"`
	Cases       []fixtureCase `json:"cases"`
}

type fixtureCase struct {
	Name       string          `json:"name"`
	Kind       string          `json:"kind"`
	ID         string          `json:"id"`
	Input      json.RawMessage `json:"input"`
	Expect     json.RawMessage `json:"expect"`
	ExpectErr  string          `json:"expectErr"`
	PreHooks   []string        `json:"preHooks"`
	PostHooks  []string        `json:"postHooks"`
	Options    []string        `json:"options"`
	DropFields []string        `json:"dropFields"`
}

func loadFixture(t *testing.T, name string) fixture {
	t.Helper()
	path := filepath.Join("..", "..", "testdata", name)
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read hydrate fixture %q: %v", name, err)
	}
	var fx fixture
	if err := json.Unmarshal(raw, &fx); err != nil {
		t.Fatalf("failed to unmarshal hydrate fixture %q: %v", name, err)
	}
	return fx
}

// decodeExpect decodes the expected document the same way the case decodes
// its input, so use_number cases compare json.Number values.
func decodeExpect(t *testing.T, tc fixtureCase) map[string]any {
	t.Helper()
	decoder := json.NewDecoder(bytes.NewReader(tc.Expect))
	for _, optName := range tc.Options {
		if optName == "use_number" {
			decoder.UseNumber()
		}
	}
	var want map[string]any
	if err := decoder.Decode(&want); err != nil {
		t.Fatalf("decode expectation for %q: %v", tc.Name, err)
	}
	return want
}
