// Package config provides configuration management for the reconciliation
// engine.
package config

import (
	"github.com/folio-labs/matchbook/internal/match"
	"github.com/folio-labs/matchbook/internal/types"
)

// EngineConfig holds the tunable parameters of one reconciliation run.
type EngineConfig struct {
	// FuzzyThreshold is the minimum accepted fuzzy name-match score.
	FuzzyThreshold float64

	// MaxExpressionLength bounds template formula sources.
	MaxExpressionLength int

	// Workers bounds batch matching parallelism.
	Workers int

	// DatabaseURL selects the configuration store. sqlite:// and
	// postgres:// URLs are supported.
	DatabaseURL string

	// Synonyms are the candidate column names per reference-data role.
	IdentifierColumns  []string
	ShopCodeColumns    []string
	DepartmentColumns  []string
	ServiceTypeColumns []string
}

// DefaultEngineConfig returns configuration with default values.
func DefaultEngineConfig() *EngineConfig {
	syn := match.DefaultSynonyms()
	return &EngineConfig{
		FuzzyThreshold:      match.DefaultFuzzyThreshold,
		MaxExpressionLength: types.MaxExpressionLengthDefault,
		Workers:             match.DefaultWorkers,
		DatabaseURL:         "sqlite://matchbook.db",
		IdentifierColumns:   syn.Identifier,
		ShopCodeColumns:     syn.ShopCode,
		DepartmentColumns:   syn.Department,
		ServiceTypeColumns:  syn.ServiceType,
	}
}

// Synonyms assembles the configured column synonyms for lookup
// construction.
func (c *EngineConfig) Synonyms() match.Synonyms {
	return match.Synonyms{
		Identifier:  c.IdentifierColumns,
		ShopCode:    c.ShopCodeColumns,
		Department:  c.DepartmentColumns,
		ServiceType: c.ServiceTypeColumns,
	}
}
