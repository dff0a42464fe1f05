//go:build js_eval

package snapdiff

import (
	"strings"
	"testing"
	"time"
)

func TestJSEvaluatorInterruptsRunawayRules(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithTimeout(20 * time.Millisecond))
	_, err := evaluator.Evaluate(RuleContext{}, `(function(){ while (true) {} })()`)
	if err == nil || !strings.Contains(err.Error(), "exceeded") {
		t.Fatalf("expected interrupt error, got %v", err)
	}
}

func TestJSEvaluatorCallHelper(t *testing.T) {
	evaluator := NewJSEvaluator(JSWithFunctionRegistry(DefaultFunctions()))
	got, err := evaluator.Evaluate(RuleContext{Record: Record{Path: Path{"a"}, Kind: KindAdd}}, `call("novalue", oldValue)`)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got != true {
		t.Fatalf("expected true, got %#v", got)
	}
	if EngineName(evaluator) != "js" {
		t.Fatalf("unexpected engine name %q", EngineName(evaluator))
	}
}
