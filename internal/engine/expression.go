package engine

import (
	"fmt"
	"sync"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ExpressionEvaluator abstracts boolean evaluation of form rules.
type ExpressionEvaluator interface {
	Check(expression string) error
	EvaluateBool(expression string, env map[string]any) (bool, error)
}

// ruleEnv is the shape rules are compiled against: submitted values and the
// visibility of each field, both keyed by field id. "values" is also an expr
// builtin, so the builtin is disabled for the variable to resolve.
var ruleEnv = map[string]any{
	"values":  map[string]any{},
	"visible": map[string]bool{},
}

// ExprLangEvaluator uses expr-lang/expr for safe expression evaluation.
// Compiled programs are cached by expression string.
type ExprLangEvaluator struct {
	mu    sync.RWMutex
	cache map[string]*vm.Program
}

func NewExprLangEvaluator() *ExprLangEvaluator {
	return &ExprLangEvaluator{
		cache: make(map[string]*vm.Program),
	}
}

// Compile checks that expression is a valid boolean expression and caches it.
func (e *ExprLangEvaluator) Compile(expression string) (*vm.Program, error) {
	e.mu.RLock()
	prog, ok := e.cache[expression]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	prog, err := expr.Compile(expression,
		expr.Env(ruleEnv),
		expr.DisableBuiltin("values"),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("compile rule: %w", err)
	}
	e.mu.Lock()
	e.cache[expression] = prog
	e.mu.Unlock()
	return prog, nil
}

func (e *ExprLangEvaluator) Check(expression string) error {
	_, err := e.Compile(expression)
	return err
}

func (e *ExprLangEvaluator) EvaluateBool(expression string, env map[string]any) (bool, error) {
	prog, err := e.Compile(expression)
	if err != nil {
		return false, err
	}

	result, err := expr.Run(prog, env)
	if err != nil {
		return false, fmt.Errorf("evaluate rule: %w", err)
	}

	isTrue, ok := result.(bool)
	if !ok {
		return false, fmt.Errorf("rule did not return bool")
	}
	return isTrue, nil
}
