package tabular

import (
	"errors"
	"reflect"
	"testing"

	"github.com/folio-labs/matchbook/internal/types"
)

func rawTestTemplate() map[string]any {
	return map[string]any{
		"name":         "accounting-export",
		"version":      "3",
		"column_order": []any{"Ref", "Currency", "Label"},
		"column_definitions": map[string]any{
			"Ref":      map[string]any{"type": "source", "column": "invoice_ref", "default": "N/A"},
			"Currency": map[string]any{"type": "constant", "value": "SGD"},
			"Label":    map[string]any{"type": "computed", "expression": "upper({vendor})"},
		},
	}
}

func TestParseTemplate(t *testing.T) {
	tpl, err := ParseTemplate(rawTestTemplate(), 0)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tpl.Name != "accounting-export" || tpl.Version != "3" {
		t.Errorf("Name=%q Version=%q", tpl.Name, tpl.Version)
	}
	if !reflect.DeepEqual(tpl.ColumnOrder, []string{"Ref", "Currency", "Label"}) {
		t.Errorf("ColumnOrder = %v", tpl.ColumnOrder)
	}

	src, ok := tpl.Columns["Ref"].(SourceRule)
	if !ok || src.Column != "invoice_ref" || src.Default != "N/A" {
		t.Errorf("Ref rule = %#v", tpl.Columns["Ref"])
	}
	cst, ok := tpl.Columns["Currency"].(ConstantRule)
	if !ok || cst.Value != "SGD" {
		t.Errorf("Currency rule = %#v", tpl.Columns["Currency"])
	}
	cmp, ok := tpl.Columns["Label"].(ComputedRule)
	if !ok {
		t.Fatalf("Label rule = %#v", tpl.Columns["Label"])
	}
	if cmp.HasDefault {
		t.Error("Label has no default key, HasDefault must be false")
	}
	if !reflect.DeepEqual(cmp.Expr.Variables, []string{"vendor"}) {
		t.Errorf("Label variables = %v", cmp.Expr.Variables)
	}
}

func TestParseTemplate_NumericVersion(t *testing.T) {
	raw := rawTestTemplate()
	raw["version"] = 3

	tpl, err := ParseTemplate(raw, 0)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	if tpl.Version != "3" {
		t.Errorf("Version = %q, want weak decode to string", tpl.Version)
	}
}

func TestParseTemplate_ExplicitNullDefault(t *testing.T) {
	raw := rawTestTemplate()
	raw["column_definitions"].(map[string]any)["Label"] = map[string]any{
		"type":       "computed",
		"expression": "upper({vendor})",
		"default":    nil,
	}

	tpl, err := ParseTemplate(raw, 0)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}
	cmp := tpl.Columns["Label"].(ComputedRule)
	if !cmp.HasDefault || cmp.Default != nil {
		t.Errorf("rule = %#v, explicit null default must count as declared", cmp)
	}
}

func TestParseTemplate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(raw map[string]any)
		wantErr error
	}{
		{
			name: "unknown rule type",
			mutate: func(raw map[string]any) {
				raw["column_definitions"].(map[string]any)["Ref"] = map[string]any{"type": "lookup"}
			},
			wantErr: types.ErrUnknownColumnRule,
		},
		{
			name: "order names undefined column",
			mutate: func(raw map[string]any) {
				raw["column_order"] = []any{"Ref", "Currency", "Label", "Ghost"}
			},
			wantErr: types.ErrTemplateColumnUndefined,
		},
		{
			name: "empty computed expression",
			mutate: func(raw map[string]any) {
				raw["column_definitions"].(map[string]any)["Label"] = map[string]any{
					"type": "computed", "expression": "   ",
				}
			},
			wantErr: types.ErrEmptyExpression,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := rawTestTemplate()
			tt.mutate(raw)
			if _, err := ParseTemplate(raw, 0); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseTemplate_SourceWithoutColumn(t *testing.T) {
	raw := rawTestTemplate()
	raw["column_definitions"].(map[string]any)["Ref"] = map[string]any{"type": "source"}

	if _, err := ParseTemplate(raw, 0); err == nil {
		t.Error("expected an error for a source rule without a column")
	}
}

func TestParseTemplate_ExpressionLengthLimit(t *testing.T) {
	raw := rawTestTemplate()
	if _, err := ParseTemplate(raw, 5); !errors.Is(err, types.ErrExpressionTooLong) {
		t.Errorf("err = %v, want %v", err, types.ErrExpressionTooLong)
	}
}

func TestRequiredColumns(t *testing.T) {
	raw := rawTestTemplate()
	raw["column_definitions"].(map[string]any)["Label"] = map[string]any{
		"type":       "computed",
		"expression": "concat({vendor}, {invoice_ref})",
	}
	tpl, err := ParseTemplate(raw, 0)
	if err != nil {
		t.Fatalf("ParseTemplate: %v", err)
	}

	got := tpl.requiredColumns()
	want := []string{"invoice_ref", "vendor"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("requiredColumns = %v, want %v (sorted, deduplicated)", got, want)
	}
}
