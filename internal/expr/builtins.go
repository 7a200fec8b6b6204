package expr

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/folio-labs/matchbook/internal/types"
	"go.starlark.net/starlark"
)

/*
 * Builtin environment for formula evaluation.
 *
 * The environment is the complete world a compiled formula can see:
 *   - field(name): record field lookup with default substitution
 *   - concat(a, b, ...): lenient text concatenation
 *   - upper(s), lower(s), substring(s, start, len), replace(s, old, new):
 *     strict string functions, error on non-string arguments
 *   - iif(cond, then, else): conditional (surface syntax: if(...))
 *
 * Strictness is split per function: concat auto-coerces every argument
 * to text; the remaining string functions reject non-strings so a
 * numeric default substituted into upper({name}) fails loudly instead
 * of producing garbage output.
 *
 * Per-evaluation state (the current record and the caller's default value)
 * travels on Starlark thread locals, never on the environment, so one
 * compiled expression can evaluate on many goroutines concurrently.
 */

// Thread-local keys for per-evaluation state.
const (
	rowLocalKey     = "matchbook.row"
	defaultLocalKey = "matchbook.default"
)

// builtinEnv is the shared predeclared environment for all compiled
// expressions. Builtins are immutable; the map is built once at init.
var builtinEnv = starlark.StringDict{
	"field":     starlark.NewBuiltin("field", builtinField),
	"concat":    starlark.NewBuiltin("concat", builtinConcat),
	"upper":     starlark.NewBuiltin("upper", builtinUpper),
	"lower":     starlark.NewBuiltin("lower", builtinLower),
	"substring": starlark.NewBuiltin("substring", builtinSubstring),
	"replace":   starlark.NewBuiltin("replace", builtinReplace),
	"iif":       starlark.NewBuiltin("iif", builtinIif),
}

// builtinField resolves one {NAME} reference against the current record.
// Missing fields and falsy values (None, "", 0, False, empty collections)
// substitute the evaluation's default value.
func builtinField(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &name); err != nil {
		return nil, err
	}

	def, _ := thread.Local(defaultLocalKey).(starlark.Value)
	if def == nil {
		def = starlark.None
	}

	row, _ := thread.Local(rowLocalKey).(types.Record)
	v, ok := row[name]
	if !ok {
		return def, nil
	}
	sv, err := goToStarlark(v)
	if err != nil {
		return nil, fmt.Errorf("field %q: %w", name, err)
	}
	if !bool(sv.Truth()) {
		return def, nil
	}
	return sv, nil
}

// builtinConcat joins any number of arguments as text.
// Lenient: every argument is coerced to its text rendering.
func builtinConcat(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	if len(kwargs) > 0 {
		return nil, fmt.Errorf("%s: unexpected keyword arguments", b.Name())
	}
	var out []byte
	for _, arg := range args {
		out = append(out, coerceText(arg)...)
	}
	return starlark.String(out), nil
}

func builtinUpper(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s, err := unpackString(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.String(strings.ToUpper(s)), nil
}

func builtinLower(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	s, err := unpackString(b, args, kwargs)
	if err != nil {
		return nil, err
	}
	return starlark.String(strings.ToLower(s)), nil
}

// builtinSubstring returns length characters of s starting at start.
// Out-of-range bounds clamp to the string; negative length yields "".
// Negative start is an error: formulas index from zero.
func builtinSubstring(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s string
	var start, length int
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &s, &start, &length); err != nil {
		return nil, err
	}
	if start < 0 {
		return nil, fmt.Errorf("%s: start must be >= 0, got %d", b.Name(), start)
	}
	runes := []rune(s)
	if start > len(runes) {
		start = len(runes)
	}
	if length < 0 {
		length = 0
	}
	end := start + length
	if end > len(runes) {
		end = len(runes)
	}
	return starlark.String(runes[start:end]), nil
}

func builtinReplace(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var s, old, repl string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &s, &old, &repl); err != nil {
		return nil, err
	}
	return starlark.String(strings.ReplaceAll(s, old, repl)), nil
}

// builtinIif is the compiled form of the surface if(cond, then, else).
// Both branches are already evaluated; selection only.
func builtinIif(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var cond, then, otherwise starlark.Value
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 3, &cond, &then, &otherwise); err != nil {
		return nil, err
	}
	if bool(cond.Truth()) {
		return then, nil
	}
	return otherwise, nil
}

// unpackString extracts a single strict string argument.
// Non-string values (including substituted non-string defaults) are
// rejected so type errors surface as evaluation failures.
func unpackString(b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (string, error) {
	var s string
	if err := starlark.UnpackPositionalArgs(b.Name(), args, kwargs, 1, &s); err != nil {
		return "", err
	}
	return s, nil
}

// coerceText renders any Starlark value as text for lenient concatenation.
// Strings pass through unquoted; other values use their display form.
func coerceText(v starlark.Value) string {
	switch x := v.(type) {
	case starlark.String:
		return string(x)
	case starlark.NoneType:
		return ""
	case starlark.Int:
		return x.String()
	case starlark.Float:
		return strconv.FormatFloat(float64(x), 'f', -1, 64)
	case starlark.Bool:
		if bool(x) {
			return "true"
		}
		return "false"
	default:
		return v.String()
	}
}
