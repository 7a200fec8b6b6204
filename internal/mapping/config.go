// Package mapping implements the configuration side of reconciliation:
// validated mapping-config payloads, deep merge and sparse diff over raw
// config trees, and the three-tier resolver that picks the effective
// configuration for one processing unit.
package mapping

import (
	"fmt"

	"github.com/folio-labs/matchbook/internal/types"
	"github.com/mitchellh/mapstructure"
)

/*
 * Mapping configurations.
 *
 * Payloads arrive as raw JSON-shaped maps from the admin layer and are
 * decoded into one of two closed shapes:
 *   - single_source: one master data path joined against the OCR output
 *   - multi_source:  a master path plus attachment sources, each needing
 *     a usable join key (its own, or the config-level internal_join_key
 *     default)
 * Shape problems are rejected here, at validation time, never at use
 * time.
 */

// MappingConfig is a validated configuration payload. Implementations are
// the closed set SingleSource and MultiSource.
type MappingConfig interface {
	mappingConfig()
}

// AttachmentSource names one extra data source joined into a multi-source
// reconciliation.
type AttachmentSource struct {
	Kind             string `mapstructure:"kind"`
	Path             string `mapstructure:"path"`
	JoinKey          string `mapstructure:"join_key"`
	FilenameContains string `mapstructure:"filename_contains"`
}

// SingleSource reconciles OCR output against one master data path.
type SingleSource struct {
	MasterPath       string            `mapstructure:"master_path"`
	ExternalJoinKeys []string          `mapstructure:"external_join_keys"`
	ColumnAliases    map[string]string `mapstructure:"column_aliases"`
	JoinNormalize    bool              `mapstructure:"join_normalize"`
	OutputMeta       map[string]any    `mapstructure:"output_meta"`
}

// MultiSource extends SingleSource with attachment sources. Every
// attachment must have a usable join key: its own, or the config-level
// InternalJoinKey default.
type MultiSource struct {
	MasterPath        string             `mapstructure:"master_path"`
	ExternalJoinKeys  []string           `mapstructure:"external_join_keys"`
	ColumnAliases     map[string]string  `mapstructure:"column_aliases"`
	JoinNormalize     bool               `mapstructure:"join_normalize"`
	OutputMeta        map[string]any     `mapstructure:"output_meta"`
	InternalJoinKey   string             `mapstructure:"internal_join_key"`
	AttachmentSources []AttachmentSource `mapstructure:"attachment_sources"`
}

func (SingleSource) mappingConfig() {}
func (MultiSource) mappingConfig()  {}

// ValidationError reports a config payload violating its shape invariant.
type ValidationError struct {
	Detail error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid mapping config: %v", e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Detail }

// ParseConfig decodes and validates one raw config payload. The shape is
// selected by the presence of attachment_sources; single-source otherwise.
func ParseConfig(raw map[string]any) (MappingConfig, error) {
	if _, multi := raw["attachment_sources"]; multi {
		var cfg MultiSource
		if err := decodeConfig(raw, &cfg); err != nil {
			return nil, &ValidationError{Detail: err}
		}
		if err := cfg.validate(); err != nil {
			return nil, &ValidationError{Detail: err}
		}
		return cfg, nil
	}

	var cfg SingleSource
	if err := decodeConfig(raw, &cfg); err != nil {
		return nil, &ValidationError{Detail: err}
	}
	return cfg, nil
}

func (c MultiSource) validate() error {
	if c.InternalJoinKey != "" {
		return nil
	}
	for i, src := range c.AttachmentSources {
		if src.JoinKey == "" {
			return fmt.Errorf("%w: attachment_sources[%d] (%s)", types.ErrMissingJoinKey, i, src.Kind)
		}
	}
	return nil
}

func decodeConfig(in map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(in)
}
