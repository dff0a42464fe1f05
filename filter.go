package snapdiff

import (
	"fmt"
	"strings"
)

// Filter drops records matched by any of its suppression rules. Rules are
// boolean expressions; a rule returning true suppresses the record.
type Filter struct {
	engine string
	rules  []filterRule
}

type filterRule struct {
	expression string
	program    CompiledRule
}

// NewFilter compiles exprs with evaluator. A nil evaluator selects the expr
// engine with DefaultFunctions. Blank expressions are ignored.
func NewFilter(evaluator Evaluator, exprs ...string) (*Filter, error) {
	if evaluator == nil {
		evaluator = NewExprEvaluator(ExprWithFunctionRegistry(DefaultFunctions()))
	}
	f := &Filter{engine: EngineName(evaluator)}
	for _, expression := range exprs {
		expression = strings.TrimSpace(expression)
		if expression == "" {
			continue
		}
		program, err := evaluator.Compile(expression)
		if err != nil {
			return nil, wrapEvaluationError(f.engine, expression, "", err)
		}
		f.rules = append(f.rules, filterRule{expression: expression, program: program})
	}
	return f, nil
}

// NewEvaluator resolves an evaluator by engine name ("expr", "cel" or "js")
// with the supplied registry merged over DefaultFunctions.
func NewEvaluator(engine string, cache ProgramCache, registry *FunctionRegistry) (Evaluator, error) {
	functions := registry.Clone().Merge(DefaultFunctions())
	var evaluator Evaluator
	switch strings.ToLower(strings.TrimSpace(engine)) {
	case "", "expr":
		evaluator = NewExprEvaluator(ExprWithProgramCache(cache), ExprWithFunctionRegistry(functions))
	case "cel":
		evaluator = NewCELEvaluator(CELWithProgramCache(cache), CELWithFunctionRegistry(functions))
	case "js":
		evaluator = NewJSEvaluator(JSWithProgramCache(cache), JSWithFunctionRegistry(functions))
	default:
		return nil, fmt.Errorf("snapdiff: unknown rule engine %q", engine)
	}
	if evaluator == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoEvaluator, engine)
	}
	return evaluator, nil
}

// Len returns the number of compiled rules.
func (f *Filter) Len() int {
	if f == nil {
		return 0
	}
	return len(f.rules)
}

// Rules returns the rule expressions in evaluation order.
func (f *Filter) Rules() []string {
	if f == nil {
		return nil
	}
	out := make([]string, len(f.rules))
	for i, rule := range f.rules {
		out[i] = rule.expression
	}
	return out
}

// Suppresses reports whether any rule matches ctx.Record and which rule did.
func (f *Filter) Suppresses(ctx RuleContext) (bool, string, error) {
	if f == nil {
		return false, "", nil
	}
	ctx = ctx.withDefaults()
	for _, rule := range f.rules {
		result, err := rule.program.Evaluate(ctx)
		if err != nil {
			return false, rule.expression, wrapEvaluationError(f.engine, rule.expression, ctx.pathLabel(), err)
		}
		matched, ok := result.(bool)
		if !ok {
			return false, rule.expression, wrapEvaluationError(f.engine, rule.expression, ctx.pathLabel(),
				fmt.Errorf("%w, got %T", ErrRuleResult, result))
		}
		if matched {
			return true, rule.expression, nil
		}
	}
	return false, "", nil
}

// Apply returns the records no rule suppresses and how many were dropped.
// ctx supplies the entity, clock and arguments shared by every record.
func (f *Filter) Apply(ctx RuleContext, records []Record) ([]Record, int, error) {
	if f.Len() == 0 {
		return records, 0, nil
	}
	kept := make([]Record, 0, len(records))
	suppressed := 0
	for _, record := range records {
		ctx.Record = record
		drop, _, err := f.Suppresses(ctx)
		if err != nil {
			return nil, 0, err
		}
		if drop {
			suppressed++
			continue
		}
		kept = append(kept, record)
	}
	return kept, suppressed, nil
}
