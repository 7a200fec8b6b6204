package expr

import (
	"fmt"

	"github.com/folio-labs/matchbook/internal/types"
	"go.starlark.net/starlark"
)

// Evaluate runs a compiled expression against one record.
//
// A missing or falsy field reference resolves to defaultValue instead of
// raising; if the surrounding expression then misuses the substituted
// value (a string function on a numeric default, an undefined function),
// evaluation fails with *EvalError naming the offending expression.
// Side-effect-free and deterministic: identical (e, row, defaultValue)
// always yields identical output.
func Evaluate(e *Expression, row types.Record, defaultValue any) (any, error) {
	def, err := goToStarlark(defaultValue)
	if err != nil {
		return nil, &EvalError{Expr: e.Text, Detail: fmt.Errorf("default value: %w", err)}
	}

	thread := &starlark.Thread{
		Name: "formula",
		Print: func(_ *starlark.Thread, _ string) {
			// Formulas have no output channel.
		},
	}
	thread.SetLocal(rowLocalKey, row)
	thread.SetLocal(defaultLocalKey, def)

	v, err := starlark.Call(thread, e.fn, nil, nil)
	if err != nil {
		return nil, &EvalError{Expr: e.Text, Detail: err}
	}

	out, err := starlarkToGo(v)
	if err != nil {
		return nil, &EvalError{Expr: e.Text, Detail: err}
	}
	return out, nil
}

// EvalError reports a formula that compiled but failed at evaluation time,
// carrying the offending expression for per-row diagnostics.
type EvalError struct {
	Expr   string
	Detail error
}

func (e *EvalError) Error() string {
	return fmt.Sprintf("error evaluating %q: %v", e.Expr, e.Detail)
}

func (e *EvalError) Unwrap() error { return e.Detail }
