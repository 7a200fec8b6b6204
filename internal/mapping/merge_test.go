package mapping

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name     string
		base     map[string]any
		override map[string]any
		want     map[string]any
	}{
		{
			name:     "scalar replaced",
			base:     map[string]any{"a": 1, "b": 2},
			override: map[string]any{"b": 3},
			want:     map[string]any{"a": 1, "b": 3},
		},
		{
			name:     "nested objects merge recursively",
			base:     map[string]any{"join": map[string]any{"key": "id", "normalize": true}},
			override: map[string]any{"join": map[string]any{"key": "ref"}},
			want:     map[string]any{"join": map[string]any{"key": "ref", "normalize": true}},
		},
		{
			name:     "lists replaced wholesale",
			base:     map[string]any{"keys": []any{"a", "b"}},
			override: map[string]any{"keys": []any{"c"}},
			want:     map[string]any{"keys": []any{"c"}},
		},
		{
			name:     "explicit null deletes",
			base:     map[string]any{"a": 1, "b": 2},
			override: map[string]any{"b": nil},
			want:     map[string]any{"a": 1},
		},
		{
			name:     "object replaces scalar",
			base:     map[string]any{"a": 1},
			override: map[string]any{"a": map[string]any{"x": 1}},
			want:     map[string]any{"a": map[string]any{"x": 1}},
		},
		{
			name:     "empty override keeps base",
			base:     map[string]any{"a": 1},
			override: nil,
			want:     map[string]any{"a": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Merge(tt.base, tt.override)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Merge = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	base := map[string]any{"join": map[string]any{"key": "id"}}
	override := map[string]any{"join": map[string]any{"key": "ref"}}

	out := Merge(base, override)
	out["join"].(map[string]any)["key"] = "mutated"

	if base["join"].(map[string]any)["key"] != "id" {
		t.Error("Merge aliased the base tree")
	}
	if override["join"].(map[string]any)["key"] != "ref" {
		t.Error("Merge aliased the override tree")
	}
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name   string
		base   map[string]any
		merged map[string]any
		want   map[string]any
	}{
		{
			name:   "equal trees yield empty diff",
			base:   map[string]any{"a": 1, "nested": map[string]any{"x": true}},
			merged: map[string]any{"a": 1, "nested": map[string]any{"x": true}},
			want:   map[string]any{},
		},
		{
			name:   "changed scalar recorded",
			base:   map[string]any{"a": 1, "b": 2},
			merged: map[string]any{"a": 1, "b": 3},
			want:   map[string]any{"b": 3},
		},
		{
			name:   "removed key recorded as explicit null",
			base:   map[string]any{"a": 1, "b": 2},
			merged: map[string]any{"a": 1},
			want:   map[string]any{"b": nil},
		},
		{
			name:   "nested change stays sparse",
			base:   map[string]any{"join": map[string]any{"key": "id", "normalize": true}},
			merged: map[string]any{"join": map[string]any{"key": "ref", "normalize": true}},
			want:   map[string]any{"join": map[string]any{"key": "ref"}},
		},
		{
			name:   "added key carried over",
			base:   map[string]any{},
			merged: map[string]any{"a": 1},
			want:   map[string]any{"a": 1},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff(tt.base, tt.merged)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Diff = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiff_TypedSliceValues(t *testing.T) {
	// Hand-built trees can carry typed slices instead of []any; equality
	// checks must not panic on them.
	base := map[string]any{"keys": []string{"a", "b"}, "n": 1}
	merged := map[string]any{"keys": []string{"a", "b"}, "n": 2}

	got := Diff(base, merged)
	want := map[string]any{"n": 2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Diff = %v, want %v", got, want)
	}
}

var anyType = reflect.TypeOf((*any)(nil)).Elem()

// asAny wraps a generated value in an interface{}-typed gopter result so
// heterogeneous scalars can share one map value type. A mapper returning
// plain `any` does not work here: gopter.Gen.Map sees *GenResult as
// assignable to the `any` return type and mis-detects the mapper as
// result-returning, then panics on the type assertion.
func asAny(v any) *gopter.GenResult {
	result := gopter.NewGenResult(v, gopter.NoShrinker)
	result.ResultType = anyType
	// Permissive sieve so nil (the delete marker) survives Retrieve.
	result.Sieve = func(interface{}) bool { return true }
	return result
}

// genConfigTree generates JSON-shaped trees two levels deep, the shape
// stored configs actually take.
func genConfigTree() gopter.Gen {
	scalar := gen.OneGenOf(
		gen.AlphaString().Map(func(s string) *gopter.GenResult { return asAny(s) }),
		gen.IntRange(0, 100).Map(func(i int) *gopter.GenResult { return asAny(i) }),
		gen.Bool().Map(func(b bool) *gopter.GenResult { return asAny(b) }),
	)
	leafMap := gen.MapOf(gen.Identifier(), scalar).
		Map(func(m map[string]any) *gopter.GenResult { return asAny(m) })
	value := gen.OneGenOf(scalar, leafMap)
	return gen.MapOf(gen.Identifier(), value)
}

// genOverrideTree is genConfigTree plus explicit nil values, which only
// make sense on the override side.
func genOverrideTree() gopter.Gen {
	scalar := gen.OneGenOf(
		gen.AlphaString().Map(func(s string) *gopter.GenResult { return asAny(s) }),
		gen.IntRange(0, 100).Map(func(i int) *gopter.GenResult { return asAny(i) }),
		gen.Bool().Map(func(b bool) *gopter.GenResult {
			if b {
				return asAny(nil) // delete marker
			}
			return asAny(b)
		}),
	)
	leafMap := gen.MapOf(gen.Identifier(), scalar).
		Map(func(m map[string]any) *gopter.GenResult { return asAny(m) })
	value := gen.OneGenOf(scalar, leafMap)
	return gen.MapOf(gen.Identifier(), value)
}

func TestMergeDiffProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("merge(base, diff(base, merge(base, o))) == merge(base, o)", prop.ForAll(
		func(base, override map[string]any) bool {
			merged := Merge(base, override)
			diff := Diff(base, merged)
			return reflect.DeepEqual(Merge(base, diff), merged)
		},
		genConfigTree(),
		genOverrideTree(),
	))

	properties.Property("diff of a tree against itself is empty", prop.ForAll(
		func(base map[string]any) bool {
			return len(Diff(base, base)) == 0
		},
		genConfigTree(),
	))

	properties.Property("merge with empty override is identity", prop.ForAll(
		func(base map[string]any) bool {
			return reflect.DeepEqual(Merge(base, nil), base)
		},
		genConfigTree(),
	))

	properties.TestingRun(t)
}
