// Package expr implements the template formula language.
//
// Formulas are single expressions referencing record fields as {NAME},
// e.g. concat(upper({name}), '-', substring({code}, 0, 4)). Parse rewrites
// every {NAME} occurrence into a call to the field() lookup primitive and
// compiles the result once with go.starlark.net; Evaluate runs the compiled
// form against one record at a time. Parse-once, evaluate-many: a template
// column compiles its expression at load time and reuses it for every row.
//
// The language is sandboxed and total: the compiled expression sees only
// the builtin environment (string helpers, conditional, native arithmetic
// and comparison) and the record supplied to Evaluate. No load, no print,
// no filesystem, network, or environment access, no hidden state.
package expr

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/folio-labs/matchbook/internal/types"
	"go.starlark.net/starlark"
)

// Expression is the parsed, immutable form of one formula string.
// Safe for concurrent evaluation: the compiled function is never mutated
// and each Evaluate call runs on its own Starlark thread.
type Expression struct {
	// Text is the original formula source.
	Text string

	// Variables lists every {NAME} reference in left-to-right order,
	// duplicates preserved: a field referenced three times appears three
	// times.
	Variables []string

	compiled string
	fn       *starlark.Function
}

// Compiled returns the rewritten source the engine actually executes.
// Exposed for diagnostics; callers must not re-parse it.
func (e *Expression) Compiled() string {
	return e.compiled
}

var (
	// {NAME} field references. Names are free-form column labels; anything
	// between braces except a nested brace.
	fieldRefRe = regexp.MustCompile(`\{([^{}]+)\}`)

	// if(...) calls. "if" is a Starlark keyword, so the surface syntax is
	// rewritten to the iif builtin before compilation.
	ifCallRe = regexp.MustCompile(`\bif\s*\(`)
)

// Parse validates and compiles one formula string.
// Returns ErrEmptyExpression for blank input and ErrExpressionTooLong when
// the source exceeds maxLength. maxLength <= 0 selects the default limit.
func Parse(text string, maxLength int) (*Expression, error) {
	if maxLength <= 0 {
		maxLength = types.MaxExpressionLengthDefault
	}
	if len(text) > maxLength {
		return nil, fmt.Errorf("%w: %d chars (limit %d)", types.ErrExpressionTooLong, len(text), maxLength)
	}
	if strings.TrimSpace(text) == "" {
		return nil, types.ErrEmptyExpression
	}

	var variables []string
	compiled := rewriteOutsideStrings(text, func(seg string) string {
		seg = fieldRefRe.ReplaceAllStringFunc(seg, func(ref string) string {
			name := strings.TrimSpace(ref[1 : len(ref)-1])
			variables = append(variables, name)
			return fmt.Sprintf("field(%q)", name)
		})
		return ifCallRe.ReplaceAllString(seg, "iif(")
	})

	fn, err := starlark.ExprFunc("<formula>", compiled, builtinEnv)
	if err != nil {
		return nil, &ParseError{Expr: text, Detail: err}
	}

	return &Expression{
		Text:      text,
		Variables: variables,
		compiled:  compiled,
		fn:        fn,
	}, nil
}

// rewriteOutsideStrings applies fn to every source segment lying outside
// quoted string literals and stitches the result back together. Literals
// (single or double quoted, backslash escapes honored) pass through
// untouched so a formula can emit text like 'if(' or '{x}' verbatim.
// An unterminated literal is carried as-is; compilation reports it.
func rewriteOutsideStrings(src string, fn func(string) string) string {
	var out strings.Builder
	start := 0
	for i := 0; i < len(src); i++ {
		quote := src[i]
		if quote != '\'' && quote != '"' {
			continue
		}
		out.WriteString(fn(src[start:i]))
		j := i + 1
		for j < len(src) {
			if src[j] == '\\' {
				j += 2
				continue
			}
			if src[j] == quote {
				j++
				break
			}
			j++
		}
		if j > len(src) {
			j = len(src)
		}
		out.WriteString(src[i:j])
		i = j - 1
		start = j
	}
	out.WriteString(fn(src[start:]))
	return out.String()
}

// ParseError reports a formula that failed to compile after rewriting.
type ParseError struct {
	Expr   string
	Detail error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid expression %q: %v", e.Expr, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Detail }
