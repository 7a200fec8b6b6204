package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// Environment > config file > defaults precedence; CLI flags override on
// top of the loaded result.
func LoadConfig(configPath string) (*EngineConfig, error) {
	v := viper.New()

	defaults := DefaultEngineConfig()
	v.SetDefault("engine.fuzzy_threshold", defaults.FuzzyThreshold)
	v.SetDefault("engine.max_expression_length", defaults.MaxExpressionLength)
	v.SetDefault("engine.workers", defaults.Workers)
	v.SetDefault("engine.database_url", defaults.DatabaseURL)
	v.SetDefault("columns.identifier", defaults.IdentifierColumns)
	v.SetDefault("columns.shop_code", defaults.ShopCodeColumns)
	v.SetDefault("columns.department", defaults.DepartmentColumns)
	v.SetDefault("columns.service_type", defaults.ServiceTypeColumns)

	// Bind environment variables with MB_ prefix
	v.SetEnvPrefix("MB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &EngineConfig{
		FuzzyThreshold:      v.GetFloat64("engine.fuzzy_threshold"),
		MaxExpressionLength: v.GetInt("engine.max_expression_length"),
		Workers:             v.GetInt("engine.workers"),
		DatabaseURL:         v.GetString("engine.database_url"),
		IdentifierColumns:   v.GetStringSlice("columns.identifier"),
		ShopCodeColumns:     v.GetStringSlice("columns.shop_code"),
		DepartmentColumns:   v.GetStringSlice("columns.department"),
		ServiceTypeColumns:  v.GetStringSlice("columns.service_type"),
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks threshold range and positive limits.
func validateConfig(cfg *EngineConfig) error {
	if cfg.FuzzyThreshold < 0 || cfg.FuzzyThreshold > 1 {
		return fmt.Errorf("fuzzy_threshold must be in [0, 1], got %v", cfg.FuzzyThreshold)
	}
	if cfg.MaxExpressionLength <= 0 {
		return fmt.Errorf("max_expression_length must be positive, got %d", cfg.MaxExpressionLength)
	}
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Workers)
	}
	if len(cfg.IdentifierColumns) == 0 {
		return fmt.Errorf("columns.identifier must list at least one synonym")
	}
	return nil
}
