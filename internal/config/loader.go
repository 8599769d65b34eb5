package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Loader provides configuration loading capabilities.
type Loader interface {
	// Load loads configuration from file and environment variables.
	// Priority: defaults → config file → environment variables (env wins)
	Load() (*Config, error)
}

type loader struct {
	rootDir string
}

// NewLoader creates a new configuration loader for the given root directory.
func NewLoader(rootDir string) Loader {
	return &loader{
		rootDir: rootDir,
	}
}

// envKeys are bound explicitly so AutomaticEnv sees keys with no file value.
var envKeys = []string{
	"paths.code",
	"paths.ignore",
	"storage.db_path",
	"extraction.workers",
	"ranking.weights.reference_count",
	"ranking.weights.complexity",
	"ranking.weights.name_importance",
	"ranking.weights.docstring",
	"ranking.weights.inheritance",
	"ranking.weights.parameter_count",
	"ranking.weights.inner_element_count",
	"ranking.weights.is_focus",
	"ranking.focus",
	"budget.total",
	"budget.chars_per_unit",
	"logging.level",
}

// Load loads configuration with the following priority (highest to lowest):
// 1. Environment variables (CODELENS_*)
// 2. Config file (.codelens/config.yml or .codelens/config.yaml)
// 3. Default values
func (l *loader) Load() (*Config, error) {
	v := viper.New()

	configDir := filepath.Join(l.rootDir, ".codelens")
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configDir)

	// CODELENS_RANKING_WEIGHTS_COMPLEXITY -> ranking.weights.complexity
	v.SetEnvPrefix("CODELENS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - we'll use defaults + env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults configures viper with default values.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("paths.code", defaults.Paths.Code)
	v.SetDefault("paths.ignore", defaults.Paths.Ignore)

	v.SetDefault("storage.db_path", defaults.Storage.DBPath)
	v.SetDefault("extraction.workers", defaults.Extraction.Workers)

	w := defaults.Ranking.Weights
	v.SetDefault("ranking.weights.reference_count", w.ReferenceCount)
	v.SetDefault("ranking.weights.complexity", w.Complexity)
	v.SetDefault("ranking.weights.name_importance", w.NameImportance)
	v.SetDefault("ranking.weights.docstring", w.Docstring)
	v.SetDefault("ranking.weights.inheritance", w.Inheritance)
	v.SetDefault("ranking.weights.parameter_count", w.ParameterCount)
	v.SetDefault("ranking.weights.inner_element_count", w.InnerElementCount)
	v.SetDefault("ranking.weights.is_focus", w.IsFocus)
	v.SetDefault("ranking.focus", defaults.Ranking.Focus)

	v.SetDefault("budget.total", defaults.Budget.Total)
	v.SetDefault("budget.chars_per_unit", defaults.Budget.CharsPerUnit)

	v.SetDefault("logging.level", defaults.Logging.Level)
}

// LoadConfig is a convenience function that creates a loader and loads config.
// It uses the current working directory as the root.
func LoadConfig() (*Config, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewLoader(wd).Load()
}

// LoadConfigFromDir loads configuration from a specific directory.
func LoadConfigFromDir(rootDir string) (*Config, error) {
	return NewLoader(rootDir).Load()
}
