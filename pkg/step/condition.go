package step

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/fmeurisse/maestro-sub001/pkg/cache"
)

// conditionEnv is the CEL environment shared by every If step: a single
// "vars" variable exposing the execution's current cache scope as a
// map(string, dyn). Compiled once per process, reused across every
// compile call.
var conditionEnv = func() *cel.Env {
	env, err := cel.NewEnv(
		cel.Variable("vars", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		panic(fmt.Sprintf("step: building CEL environment: %v", err))
	}
	return env
}()

// compileCondition parses and type-checks a CEL expression once, at
// decode time, so a malformed condition is rejected before any execution
// ever reaches it.
func compileCondition(expr string) (cel.Program, error) {
	ast, issues := conditionEnv.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expr, issues.Err())
	}
	prg, err := conditionEnv.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid condition %q: %w", expr, err)
	}
	return prg, nil
}

// evalCondition evaluates a compiled condition against the flattened
// contents of c. Evaluation errors, or a non-bool result, are surfaced as
// errors so the If step can fail per the engine's contract ("evaluation
// errors are step failures").
func evalCondition(prg cel.Program, c cache.Cache) (bool, error) {
	vars := map[string]interface{}{}
	c.Range(func(key string, value interface{}) bool {
		vars[key] = value
		return true
	})

	out, _, err := prg.Eval(map[string]interface{}{"vars": vars})
	if err != nil {
		return false, fmt.Errorf("evaluating condition: %w", err)
	}
	boolVal, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition did not evaluate to a bool, got %T", out.Value())
	}
	return boolVal, nil
}
