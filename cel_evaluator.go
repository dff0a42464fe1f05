package snapdiff

import (
	"fmt"
	"sync"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// CELEvaluatorOption configures the CEL evaluator.
type CELEvaluatorOption func(*celEvaluator)

// CELWithProgramCache wires a ProgramCache into the CEL evaluator.
func CELWithProgramCache(cache ProgramCache) CELEvaluatorOption {
	return func(e *celEvaluator) {
		e.cache = cache
	}
}

// CELWithFunctionRegistry wires a FunctionRegistry into the CEL evaluator.
// Registered functions accept up to three arguments.
func CELWithFunctionRegistry(registry *FunctionRegistry) CELEvaluatorOption {
	return func(e *celEvaluator) {
		if registry == nil {
			return
		}
		e.registry = registry.Clone()
	}
}

const celMaxArity = 3

type celEvaluator struct {
	cache    ProgramCache
	registry *FunctionRegistry

	envOnce sync.Once
	env     *celgo.Env
	envErr  error
}

// NewCELEvaluator constructs an Evaluator backed by cel-go.
func NewCELEvaluator(opts ...CELEvaluatorOption) Evaluator {
	e := &celEvaluator{}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

func (e *celEvaluator) Evaluate(ctx RuleContext, expression string) (any, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	ctx = ctx.withDefaults()
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return e.run(ctx, expression, program)
}

func (e *celEvaluator) Compile(expression string) (CompiledRule, error) {
	if expression == "" {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("expression must not be empty"))
	}
	program, err := e.loadOrCompile(expression)
	if err != nil {
		return nil, err
	}
	return &celCompiledRule{
		evaluator:  e,
		expression: expression,
		program:    program,
	}, nil
}

func (e *celEvaluator) run(ctx RuleContext, expression string, program celgo.Program) (any, error) {
	out, _, err := program.Eval(ctx.bindings())
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, ctx.pathLabel(), err)
	}
	return celToNative(out), nil
}

func (e *celEvaluator) loadOrCompile(expression string) (celgo.Program, error) {
	if e.cache != nil {
		if cached, ok := e.cache.Get("cel:" + expression); ok {
			if program, ok := cached.(celgo.Program); ok {
				return program, nil
			}
		}
	}

	env, err := e.environment()
	if err != nil {
		return nil, wrapEvaluatorError("cel", err)
	}
	ast, issues := env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, wrapEvaluationError("cel", expression, "", issues.Err())
	}
	program, err := env.Program(ast)
	if err != nil {
		return nil, wrapEvaluationError("cel", expression, "", err)
	}

	if e.cache != nil {
		e.cache.Set("cel:"+expression, program)
	}
	return program, nil
}

// environment builds the CEL environment once; the variable set is fixed.
func (e *celEvaluator) environment() (*celgo.Env, error) {
	e.envOnce.Do(func() {
		opts := make([]celgo.EnvOption, 0, len(ruleVariables)+2)
		for _, name := range ruleVariables {
			if name == "now" {
				opts = append(opts, celgo.Variable(name, celgo.TimestampType))
				continue
			}
			opts = append(opts, celgo.Variable(name, celgo.DynType))
		}
		if e.registry != nil {
			for _, name := range e.registry.Names() {
				opts = append(opts, celgo.Function(name, e.overloads(name)...))
			}
		}
		e.env, e.envErr = celgo.NewEnv(opts...)
	})
	return e.env, e.envErr
}

func (e *celEvaluator) overloads(name string) []celgo.FunctionOpt {
	overloads := make([]celgo.FunctionOpt, 0, celMaxArity)
	for arity := 1; arity <= celMaxArity; arity++ {
		args := make([]*celgo.Type, arity)
		for i := range args {
			args[i] = celgo.DynType
		}
		overloads = append(overloads, celgo.Overload(
			fmt.Sprintf("%s_dyn_%d", name, arity),
			args,
			celgo.DynType,
			celgo.FunctionBinding(e.binding(name)),
		))
	}
	return overloads
}

func (e *celEvaluator) binding(name string) func(values ...ref.Val) ref.Val {
	return func(values ...ref.Val) ref.Val {
		args := make([]any, 0, len(values))
		for _, value := range values {
			args = append(args, celToNative(value))
		}
		result, err := e.registry.Call(name, args...)
		if err != nil {
			return types.NewErr("%s", err.Error())
		}
		if result == nil {
			return types.NullValue
		}
		return types.DefaultTypeAdapter.NativeToValue(result)
	}
}

type celCompiledRule struct {
	evaluator  *celEvaluator
	expression string
	program    celgo.Program
}

func (r *celCompiledRule) Evaluate(ctx RuleContext) (any, error) {
	if r.evaluator == nil {
		return nil, wrapEvaluatorError("cel", fmt.Errorf("compiled rule missing evaluator"))
	}
	return r.evaluator.run(ctx.withDefaults(), r.expression, r.program)
}

// celToNative converts CEL values back into plain document values.
func celToNative(value ref.Val) any {
	if value == nil || value.Type() == types.NullType {
		return nil
	}
	switch typed := value.(type) {
	case traits.Mapper:
		out := map[string]any{}
		it := typed.Iterator()
		for it.HasNext() == types.True {
			key := it.Next()
			out[fmt.Sprint(key.Value())] = celToNative(typed.Get(key))
		}
		return out
	case traits.Lister:
		out := []any{}
		it := typed.Iterator()
		for it.HasNext() == types.True {
			out = append(out, celToNative(it.Next()))
		}
		return out
	}
	switch native := value.Value().(type) {
	case int64:
		return float64(native)
	case uint64:
		return float64(native)
	default:
		return native
	}
}
