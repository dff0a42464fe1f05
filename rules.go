package snapdiff

import (
	"time"

	"github.com/goliatone/go-snapdiff/document"
)

// RuleContext carries the record under evaluation plus caller supplied data.
type RuleContext struct {
	Record   Record
	Entity   map[string]any
	Now      *time.Time
	Args     map[string]any
	Metadata map[string]any
}

func (ctx RuleContext) withDefaultNow() RuleContext {
	if ctx.Now != nil {
		return ctx
	}
	now := time.Now()
	ctx.Now = &now
	return ctx
}

func (ctx RuleContext) timestamp() time.Time {
	ctx = ctx.withDefaultNow()
	return *ctx.Now
}

func (ctx RuleContext) withDefaultMaps() RuleContext {
	if ctx.Entity == nil {
		ctx.Entity = map[string]any{}
	}
	if ctx.Args == nil {
		ctx.Args = map[string]any{}
	}
	if ctx.Metadata == nil {
		ctx.Metadata = map[string]any{}
	}
	return ctx
}

func (ctx RuleContext) withDefaults() RuleContext {
	return ctx.withDefaultNow().withDefaultMaps()
}

func (ctx RuleContext) pathLabel() string {
	if len(ctx.Record.Path) == 0 {
		return "<none>"
	}
	return ctx.Record.Path.String()
}

// ruleVariables lists the names every evaluator exposes to expressions.
var ruleVariables = []string{
	"path", "segments", "field", "key", "kind",
	"oldValue", "newValue", "entity", "now", "args", "metadata",
}

// bindings returns the variables exposed to rule expressions. Exact
// json.Number values are handed to the engines as float64.
func (ctx RuleContext) bindings() map[string]any {
	segments := make([]any, len(ctx.Record.Path))
	for i, segment := range ctx.Record.Path {
		segments[i] = segment
	}
	return map[string]any{
		"path":     ctx.Record.Path.String(),
		"segments": segments,
		"field":    ctx.Record.Path.Field(),
		"key":      ctx.Record.Path.Key(),
		"kind":     string(ctx.Record.Kind),
		"oldValue": document.Plain(ctx.Record.Old),
		"newValue": document.Plain(ctx.Record.New),
		"entity":   document.Plain(ctx.Entity),
		"now":      ctx.timestamp(),
		"args":     document.Plain(ctx.Args),
		"metadata": document.Plain(ctx.Metadata),
	}
}

// Evaluator executes expressions against a rule context.
type Evaluator interface {
	Evaluate(ctx RuleContext, expr string) (any, error)
	Compile(expr string) (CompiledRule, error)
}

// CompiledRule represents a reusable expression program.
type CompiledRule interface {
	Evaluate(ctx RuleContext) (any, error)
}

// EngineName reports which rule engine backs e.
func EngineName(e Evaluator) string {
	switch e.(type) {
	case nil:
		return "unknown"
	case *exprEvaluator:
		return "expr"
	case *celEvaluator:
		return "cel"
	default:
		if isJSEvaluator(e) {
			return "js"
		}
		return "custom"
	}
}
