package snapdiff

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// LayerKind identifies how a layer descends into a value.
type LayerKind int

const (
	// LayerList descends into the elements of a sequence.
	LayerList LayerKind = iota + 1
	// LayerDict descends into a mapping at Layer.Key.
	LayerDict
)

func (k LayerKind) String() string {
	switch k {
	case LayerList:
		return "list"
	case LayerDict:
		return "dict"
	default:
		return fmt.Sprintf("layer(%d)", int(k))
	}
}

// Layer is one step of a field hierarchy.
type Layer struct {
	Kind LayerKind
	Key  string
}

// List returns a layer descending into a sequence.
func List() Layer {
	return Layer{Kind: LayerList}
}

// Dict returns a layer descending into a mapping at key.
func Dict(key string) Layer {
	return Layer{Kind: LayerDict, Key: key}
}

func (l Layer) String() string {
	if l.Kind == LayerDict {
		return "dict(" + l.Key + ")"
	}
	return l.Kind.String()
}

// Hierarchy maps a top-level field to the layers describing how deep the
// engine descends before comparing values. Fields without an entry are
// compared as flat values.
type Hierarchy map[string][]Layer

// Fields returns the configured field names sorted alphabetically.
func (h Hierarchy) Fields() []string {
	fields := make([]string, 0, len(h))
	for field := range h {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// Layers returns the layers configured for field.
func (h Hierarchy) Layers(field string) ([]Layer, bool) {
	if h == nil {
		return nil, false
	}
	layers, ok := h[field]
	return layers, ok
}

// Clone returns a copy that shares no slices with h.
func (h Hierarchy) Clone() Hierarchy {
	if h == nil {
		return nil
	}
	out := make(Hierarchy, len(h))
	for field, layers := range h {
		out[field] = append([]Layer(nil), layers...)
	}
	return out
}

// Validate checks every layer kind and dict key up front so a broken
// hierarchy fails before any document is compared.
func (h Hierarchy) Validate() error {
	for _, field := range h.Fields() {
		for i, layer := range h[field] {
			switch layer.Kind {
			case LayerList:
			case LayerDict:
				if layer.Key == "" {
					return &InvalidHierarchyError{
						Field:  field,
						Path:   Path{field},
						Reason: fmt.Sprintf("dict layer %d has no key", i),
					}
				}
			default:
				return &UnsupportedLayerError{Field: field, Path: Path{field}, Kind: layer.Kind.String()}
			}
		}
	}
	return nil
}

// Tokens renders the layers of field in the token encoding accepted by
// ParseLayers.
func (h Hierarchy) Tokens(field string) []string {
	layers := h[field]
	tokens := make([]string, 0, len(layers)*2)
	for _, layer := range layers {
		tokens = append(tokens, layer.Kind.String())
		if layer.Kind == LayerDict {
			tokens = append(tokens, layer.Key)
		}
	}
	return tokens
}

// ParseLayers converts the token encoding ("list", "dict", "<key>", ...) into
// typed layers. Every "dict" token must be followed by its key.
func ParseLayers(tokens []string) ([]Layer, error) {
	layers := make([]Layer, 0, len(tokens))
	for i := 0; i < len(tokens); i++ {
		token := strings.ToLower(strings.TrimSpace(tokens[i]))
		switch token {
		case "list":
			layers = append(layers, List())
		case "dict":
			if i+1 >= len(tokens) || strings.TrimSpace(tokens[i+1]) == "" {
				return nil, &InvalidHierarchyError{Reason: fmt.Sprintf("dict token at position %d is missing its key", i)}
			}
			i++
			layers = append(layers, Dict(strings.TrimSpace(tokens[i])))
		default:
			return nil, &UnsupportedLayerError{Kind: tokens[i]}
		}
	}
	return layers, nil
}

// MustParseLayers is ParseLayers for static hierarchies; it panics on error.
func MustParseLayers(tokens ...string) []Layer {
	layers, err := ParseLayers(tokens)
	if err != nil {
		panic(err)
	}
	return layers
}

// UnmarshalJSON accepts both the token encoding and typed entries:
//
//	{"officers": ["list", "dict", "name"]}
//	{"officers": [{"list": true}, {"dict": "name"}]}
func (h *Hierarchy) UnmarshalJSON(data []byte) error {
	var raw map[string][]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("snapdiff: decode hierarchy: %w", err)
	}
	parsed, err := hierarchyFromRaw(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalJSON writes the token encoding.
func (h Hierarchy) MarshalJSON() ([]byte, error) {
	out := make(map[string][]string, len(h))
	for field := range h {
		out[field] = h.Tokens(field)
	}
	return json.Marshal(out)
}

// UnmarshalYAML accepts the same encodings as UnmarshalJSON.
func (h *Hierarchy) UnmarshalYAML(node *yaml.Node) error {
	var raw map[string][]any
	if err := node.Decode(&raw); err != nil {
		return fmt.Errorf("snapdiff: decode hierarchy: %w", err)
	}
	parsed, err := hierarchyFromRaw(raw)
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// MarshalYAML writes the token encoding.
func (h Hierarchy) MarshalYAML() (any, error) {
	out := make(map[string][]string, len(h))
	for field := range h {
		out[field] = h.Tokens(field)
	}
	return out, nil
}

// LoadHierarchyFile reads a hierarchy from a .json, .yaml or .yml file.
func LoadHierarchyFile(path string) (Hierarchy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapdiff: read hierarchy %q: %w", path, err)
	}
	var hierarchy Hierarchy
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &hierarchy)
	default:
		err = yaml.Unmarshal(raw, &hierarchy)
	}
	if err != nil {
		return nil, fmt.Errorf("snapdiff: parse hierarchy %q: %w", path, err)
	}
	if err := hierarchy.Validate(); err != nil {
		return nil, err
	}
	return hierarchy, nil
}

func hierarchyFromRaw(raw map[string][]any) (Hierarchy, error) {
	out := make(Hierarchy, len(raw))
	for field, entries := range raw {
		layers, err := layersFromRaw(entries)
		if err != nil {
			return nil, withField(err, field)
		}
		out[field] = layers
	}
	return out, nil
}

func layersFromRaw(entries []any) ([]Layer, error) {
	var layers []Layer
	var tokens []string
	flush := func() error {
		if len(tokens) == 0 {
			return nil
		}
		parsed, err := ParseLayers(tokens)
		if err != nil {
			return err
		}
		layers = append(layers, parsed...)
		tokens = nil
		return nil
	}

	for _, entry := range entries {
		switch typed := entry.(type) {
		case string:
			tokens = append(tokens, typed)
		case map[string]any:
			if err := flush(); err != nil {
				return nil, err
			}
			layer, err := layerFromMap(typed)
			if err != nil {
				return nil, err
			}
			layers = append(layers, layer)
		default:
			return nil, &UnsupportedLayerError{Kind: fmt.Sprintf("%v", entry)}
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}
	if layers == nil {
		layers = []Layer{}
	}
	return layers, nil
}

func layerFromMap(entry map[string]any) (Layer, error) {
	if len(entry) != 1 {
		return Layer{}, &InvalidHierarchyError{Reason: fmt.Sprintf("typed layer must have exactly one key, got %d", len(entry))}
	}
	for kind, value := range entry {
		switch strings.ToLower(kind) {
		case "list":
			return List(), nil
		case "dict":
			key, ok := value.(string)
			if !ok || strings.TrimSpace(key) == "" {
				return Layer{}, &InvalidHierarchyError{Reason: "dict layer requires a string key"}
			}
			return Dict(strings.TrimSpace(key)), nil
		default:
			return Layer{}, &UnsupportedLayerError{Kind: kind}
		}
	}
	return Layer{}, nil
}
