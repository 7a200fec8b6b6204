package expr

import (
	"fmt"

	"github.com/folio-labs/matchbook/internal/types"
	"go.starlark.net/starlark"
)

// goToStarlark converts a Go value from a record into its Starlark form.
// Supported: nil, string, bool, int, int64, float64, []string, []any,
// map[string]any, Record.
func goToStarlark(v any) (starlark.Value, error) {
	switch val := v.(type) {
	case nil:
		return starlark.None, nil
	case string:
		return starlark.String(val), nil
	case bool:
		return starlark.Bool(val), nil
	case int:
		return starlark.MakeInt(val), nil
	case int64:
		return starlark.MakeInt64(val), nil
	case float64:
		return starlark.Float(val), nil
	case []string:
		list := make([]starlark.Value, len(val))
		for i, s := range val {
			list[i] = starlark.String(s)
		}
		return starlark.NewList(list), nil
	case []any:
		list := make([]starlark.Value, len(val))
		for i, item := range val {
			sv, err := goToStarlark(item)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			list[i] = sv
		}
		return starlark.NewList(list), nil
	case map[string]any:
		return mapToStarlark(val)
	case types.Record:
		return mapToStarlark(map[string]any(val))
	default:
		return nil, fmt.Errorf("unsupported value type %T", v)
	}
}

func mapToStarlark(m map[string]any) (starlark.Value, error) {
	dict := starlark.NewDict(len(m))
	for k, v := range m {
		sv, err := goToStarlark(v)
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
		if err := dict.SetKey(starlark.String(k), sv); err != nil {
			return nil, fmt.Errorf("key %q: %w", k, err)
		}
	}
	return dict, nil
}

// starlarkToGo converts an evaluation result back to a plain Go value:
// string, int64, float64, bool, []any, map[string]any, or nil.
func starlarkToGo(v starlark.Value) (any, error) {
	switch val := v.(type) {
	case starlark.NoneType:
		return nil, nil
	case starlark.String:
		return string(val), nil
	case starlark.Bool:
		return bool(val), nil
	case starlark.Int:
		i64, ok := val.Int64()
		if !ok {
			// Integers beyond int64 degrade to their decimal rendering
			return val.String(), nil
		}
		return i64, nil
	case starlark.Float:
		return float64(val), nil
	case *starlark.List:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case starlark.Tuple:
		out := make([]any, val.Len())
		for i := 0; i < val.Len(); i++ {
			gv, err := starlarkToGo(val.Index(i))
			if err != nil {
				return nil, fmt.Errorf("tuple index %d: %w", i, err)
			}
			out[i] = gv
		}
		return out, nil
	case *starlark.Dict:
		out := make(map[string]any, val.Len())
		for _, item := range val.Items() {
			key, ok := item[0].(starlark.String)
			if !ok {
				return nil, fmt.Errorf("dict key must be string, got %s", item[0].Type())
			}
			gv, err := starlarkToGo(item[1])
			if err != nil {
				return nil, fmt.Errorf("dict key %q: %w", string(key), err)
			}
			out[string(key)] = gv
		}
		return out, nil
	default:
		return val.String(), nil
	}
}
