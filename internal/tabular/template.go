// Package tabular implements template-driven column generation: a named,
// ordered set of column rules applied uniformly to every record of a
// dataset, with computed columns delegated to the expression engine.
package tabular

import (
	"fmt"
	"sort"

	"github.com/folio-labs/matchbook/internal/expr"
	"github.com/folio-labs/matchbook/internal/types"
	"github.com/mitchellh/mapstructure"
)

/*
 * Templates.
 *
 * A template names its output columns in order and binds each to exactly
 * one rule:
 *   - source:   copy a named input column, falling back to a default when
 *               the value is null or the key is absent
 *   - constant: emit a fixed value on every row
 *   - computed: evaluate a formula against the row; the expression is
 *               compiled once at template load and reused for every row
 * Rules are a closed set. Raw template payloads come from an external
 * configuration store as nested maps and are decoded and validated here
 * before any generation runs.
 */

// ColumnRule is one way of producing a single output column value.
// Implementations are the closed set SourceRule, ConstantRule and
// ComputedRule.
type ColumnRule interface {
	columnRule()
}

// SourceRule copies a named input column.
type SourceRule struct {
	Column  string
	Default any
}

// ConstantRule emits the same fixed value on every row.
type ConstantRule struct {
	Value any
}

// ComputedRule evaluates a pre-compiled formula against the row.
// Default is substituted on evaluation failure only when HasDefault is
// set; otherwise the failure propagates with the row attached.
type ComputedRule struct {
	Expr       *expr.Expression
	Default    any
	HasDefault bool
}

func (SourceRule) columnRule()   {}
func (ConstantRule) columnRule() {}
func (ComputedRule) columnRule() {}

// Template is an ordered, named set of column rules.
type Template struct {
	Name        string
	Version     string
	ColumnOrder []string
	Columns     map[string]ColumnRule
}

// Validate checks that every column named in ColumnOrder has a rule.
func (t *Template) Validate() error {
	for _, name := range t.ColumnOrder {
		if _, ok := t.Columns[name]; !ok {
			return fmt.Errorf("%w: %q", types.ErrTemplateColumnUndefined, name)
		}
	}
	return nil
}

// requiredColumns collects every input column the template reads: source
// columns plus every variable referenced by a computed expression.
// Sorted, deduplicated.
func (t *Template) requiredColumns() []string {
	seen := make(map[string]struct{})
	for _, name := range t.ColumnOrder {
		switch rule := t.Columns[name].(type) {
		case SourceRule:
			seen[rule.Column] = struct{}{}
		case ComputedRule:
			for _, v := range rule.Expr.Variables {
				seen[v] = struct{}{}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for col := range seen {
		out = append(out, col)
	}
	sort.Strings(out)
	return out
}

// rawColumn is the wire shape of one column definition.
type rawColumn struct {
	Type       string `mapstructure:"type"`
	Column     string `mapstructure:"column"`
	Value      any    `mapstructure:"value"`
	Expression string `mapstructure:"expression"`
	Default    any    `mapstructure:"default"`
}

// rawTemplate is the wire shape of a stored template. Column definitions
// stay as raw maps so default-key presence can be distinguished from an
// explicit null default.
type rawTemplate struct {
	Name        string                    `mapstructure:"name"`
	Version     string                    `mapstructure:"version"`
	ColumnOrder []string                  `mapstructure:"column_order"`
	Columns     map[string]map[string]any `mapstructure:"column_definitions"`
}

// ParseTemplate decodes and validates a raw template payload. Computed
// expressions are compiled here, once, against maxExprLength (<= 0 selects
// the engine default). Unknown rule types and order entries without a
// definition are rejected.
func ParseTemplate(raw map[string]any, maxExprLength int) (*Template, error) {
	var rt rawTemplate
	if err := decode(raw, &rt); err != nil {
		return nil, fmt.Errorf("template payload: %w", err)
	}

	tpl := &Template{
		Name:        rt.Name,
		Version:     rt.Version,
		ColumnOrder: rt.ColumnOrder,
		Columns:     make(map[string]ColumnRule, len(rt.Columns)),
	}

	for name, rawRule := range rt.Columns {
		var rc rawColumn
		if err := decode(rawRule, &rc); err != nil {
			return nil, fmt.Errorf("column %q: %w", name, err)
		}
		_, hasDefault := rawRule["default"]

		switch rc.Type {
		case "source":
			if rc.Column == "" {
				return nil, fmt.Errorf("column %q: source rule needs a column name", name)
			}
			tpl.Columns[name] = SourceRule{Column: rc.Column, Default: rc.Default}
		case "constant":
			tpl.Columns[name] = ConstantRule{Value: rc.Value}
		case "computed":
			compiled, err := expr.Parse(rc.Expression, maxExprLength)
			if err != nil {
				return nil, fmt.Errorf("column %q: %w", name, err)
			}
			tpl.Columns[name] = ComputedRule{Expr: compiled, Default: rc.Default, HasDefault: hasDefault}
		default:
			return nil, fmt.Errorf("%w: column %q has type %q", types.ErrUnknownColumnRule, name, rc.Type)
		}
	}

	if err := tpl.Validate(); err != nil {
		return nil, err
	}
	return tpl, nil
}

// decode runs a weakly typed mapstructure decode, so numeric versions and
// stringly typed payload variants from the configuration store all land in
// the same shape.
func decode(in, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
