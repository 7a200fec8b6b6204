package mapping

import "reflect"

/*
 * Deep merge and sparse diff over raw config trees.
 *
 * Merge semantics: nested objects merge recursively; every other value,
 * lists included, is replaced wholesale by the override. An explicit nil
 * in the override deletes the key. Diff is the inverse construction: the
 * minimal override such that Merge(base, Diff(base, merged)) == merged,
 * with deleted keys recorded as explicit nil.
 */

// Merge deep-merges override on top of base and returns a new tree.
// Neither input is mutated.
func Merge(base, override map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(override))
	for k, v := range base {
		out[k] = copyValue(v)
	}
	for k, v := range override {
		if v == nil {
			// Explicit null means delete, not "set to null"
			delete(out, k)
			continue
		}
		if ov, ok := v.(map[string]any); ok {
			bv, _ := out[k].(map[string]any)
			// Merging against a nil base still strips nested delete markers
			out[k] = Merge(bv, ov)
			continue
		}
		out[k] = copyValue(v)
	}
	return out
}

// Diff computes the sparse override turning base into merged: equal keys
// are omitted, changed nested objects recurse, keys absent from merged
// come back as explicit nil.
func Diff(base, merged map[string]any) map[string]any {
	out := make(map[string]any)
	for k, bv := range base {
		mv, ok := merged[k]
		if !ok {
			out[k] = nil
			continue
		}
		if deepEqual(bv, mv) {
			continue
		}
		bvMap, bvIsMap := bv.(map[string]any)
		mvMap, mvIsMap := mv.(map[string]any)
		if bvIsMap && mvIsMap {
			if sub := Diff(bvMap, mvMap); len(sub) > 0 {
				out[k] = sub
			}
			continue
		}
		out[k] = copyValue(mv)
	}
	for k, mv := range merged {
		if _, ok := base[k]; !ok {
			out[k] = copyValue(mv)
		}
	}
	return out
}

// copyValue deep-copies map values so merged trees never alias their
// inputs. Slices are copied one level deep with their map elements
// recursed.
func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}

func deepEqual(a, b any) bool {
	am, aIsMap := a.(map[string]any)
	bm, bIsMap := b.(map[string]any)
	if aIsMap && bIsMap {
		if len(am) != len(bm) {
			return false
		}
		for k, av := range am {
			bv, ok := bm[k]
			if !ok || !deepEqual(av, bv) {
				return false
			}
		}
		return true
	}
	as, aIsSlice := a.([]any)
	bs, bIsSlice := b.([]any)
	if aIsSlice && bIsSlice {
		if len(as) != len(bs) {
			return false
		}
		for i := range as {
			if !deepEqual(as[i], bs[i]) {
				return false
			}
		}
		return true
	}
	// Trees decoded from JSON only hold comparable scalars here, but
	// hand-built trees may carry typed slices; == would panic on those.
	return reflect.DeepEqual(a, b)
}
