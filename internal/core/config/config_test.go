package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultEngineConfig(t *testing.T) {
	cfg := DefaultEngineConfig()
	if cfg.FuzzyThreshold != 0.85 {
		t.Errorf("FuzzyThreshold = %v, want 0.85", cfg.FuzzyThreshold)
	}
	if cfg.MaxExpressionLength != 500 {
		t.Errorf("MaxExpressionLength = %d, want 500", cfg.MaxExpressionLength)
	}
	if cfg.Workers <= 0 {
		t.Errorf("Workers = %d, want positive", cfg.Workers)
	}
	if len(cfg.IdentifierColumns) == 0 {
		t.Error("default identifier synonyms must not be empty")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	want := DefaultEngineConfig()
	if cfg.FuzzyThreshold != want.FuzzyThreshold || cfg.Workers != want.Workers {
		t.Errorf("cfg = %+v, want defaults %+v", cfg, want)
	}
}

func TestLoadConfig_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  fuzzy_threshold: 0.9
  workers: 8
columns:
  identifier: ["msisdn"]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.FuzzyThreshold != 0.9 || cfg.Workers != 8 {
		t.Errorf("cfg = %+v", cfg)
	}
	if len(cfg.IdentifierColumns) != 1 || cfg.IdentifierColumns[0] != "msisdn" {
		t.Errorf("IdentifierColumns = %v", cfg.IdentifierColumns)
	}
	// Untouched keys keep their defaults
	if cfg.MaxExpressionLength != 500 {
		t.Errorf("MaxExpressionLength = %d, want 500", cfg.MaxExpressionLength)
	}
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("MB_ENGINE_FUZZY_THRESHOLD", "0.7")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.FuzzyThreshold != 0.7 {
		t.Errorf("FuzzyThreshold = %v, want the MB_ environment override", cfg.FuzzyThreshold)
	}
}

func TestLoadConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantMsg string
	}{
		{
			name:    "threshold out of range",
			content: "engine:\n  fuzzy_threshold: 1.5\n",
			wantMsg: "fuzzy_threshold",
		},
		{
			name:    "non-positive workers",
			content: "engine:\n  workers: 0\n",
			wantMsg: "workers",
		},
		{
			name:    "non-positive expression limit",
			content: "engine:\n  max_expression_length: -1\n",
			wantMsg: "max_expression_length",
		},
		{
			name:    "empty identifier synonyms",
			content: "columns:\n  identifier: []\n",
			wantMsg: "columns.identifier",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatal(err)
			}
			_, err := LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantMsg)
			}
		})
	}
}

func TestSynonyms(t *testing.T) {
	cfg := &EngineConfig{
		IdentifierColumns: []string{"id"},
		ShopCodeColumns:   []string{"shop"},
		DepartmentColumns: []string{"dept"},
	}
	syn := cfg.Synonyms()
	if len(syn.Identifier) != 1 || syn.Identifier[0] != "id" {
		t.Errorf("Synonyms = %+v", syn)
	}
}
