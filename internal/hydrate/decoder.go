package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/goliatone/go-snapdiff/document"
)

// Context identifies the entity a payload was fetched for.
type Context struct {
	Kind string
	ID   string
}

func (c Context) label() string {
	if c.Kind == "" {
		return c.ID
	}
	return c.Kind + "/" + c.ID
}

// PreHook lets callers mutate or normalise the decoded payload before it is
// turned into a document.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers validate the final document.
type PostHook func(Context, map[string]any) error

// DecoderOption configures a Decoder instance.
type DecoderOption func(*Decoder)

// Decoder converts raw JSON payloads into normalised documents.
type Decoder struct {
	preHooks     []PreHook
	postHooks    []PostHook
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook after JSON decoding and before normalisation.
func WithPreHook(hook PreHook) DecoderOption {
	return func(d *Decoder) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook to the normalised document.
func WithPostHook(hook PostHook) DecoderOption {
	return func(d *Decoder) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber enables json.Decoder.UseNumber. Numbers stay json.Number in
// the document, so identifiers beyond float64 precision compare exactly.
func WithUseNumber() DecoderOption {
	return func(d *Decoder) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDecoderConfig allows callers to configure the json.Decoder directly.
func WithDecoderConfig(configure func(*json.Decoder)) DecoderOption {
	return func(d *Decoder) {
		if configure != nil {
			d.configureDec = append(d.configureDec, configure)
		}
	}
}

// WithDropFields removes volatile fields before diffing. A field is either a
// top level name or a dotted path into nested objects ("meta.fetchedAt").
func WithDropFields(fields ...string) DecoderOption {
	return WithPreHook(func(_ Context, payload map[string]any) (map[string]any, error) {
		for _, field := range fields {
			dropPath(payload, strings.Split(field, "."))
		}
		return payload, nil
	})
}

func NewDecoder(opts ...DecoderOption) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into a document applying configured hooks. The
// payload must be a JSON object.
func (d *Decoder) Decode(ctx Context, payload []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, fmt.Errorf("hydrate: payload is empty for %q", ctx.label())
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	for _, configure := range d.configureDec {
		if configure != nil {
			configure(decoder)
		}
	}
	var raw any
	if err := decoder.Decode(&raw); err != nil {
		return nil, fmt.Errorf("hydrate: decode %q: %w", ctx.label(), err)
	}
	current, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("hydrate: payload for %q is %s, want object", ctx.label(), document.KindOf(raw))
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("hydrate: pre-hook for %q failed: %w", ctx.label(), err)
		}
		if next != nil {
			current = next
		}
	}

	doc, _ := document.Normalize(current).(map[string]any)
	if doc == nil {
		doc = map[string]any{}
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, doc); err != nil {
			return nil, fmt.Errorf("hydrate: post-hook for %q failed: %w", ctx.label(), err)
		}
	}

	return doc, nil
}

// DecodeValue normalises an already decoded payload, e.g. one produced by
// an HTTP client or a YAML file.
func (d *Decoder) DecodeValue(ctx Context, payload map[string]any) (map[string]any, error) {
	if payload == nil {
		return nil, fmt.Errorf("hydrate: payload is nil for %q", ctx.label())
	}
	buffer, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("hydrate: marshal payload for %q: %w", ctx.label(), err)
	}
	return d.Decode(ctx, buffer)
}

func dropPath(node map[string]any, path []string) {
	if len(path) == 0 || node == nil {
		return
	}
	if len(path) == 1 {
		delete(node, path[0])
		return
	}
	child, ok := node[path[0]].(map[string]any)
	if !ok {
		return
	}
	dropPath(child, path[1:])
}
