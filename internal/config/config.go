package config

import (
	"path/filepath"

	"github.com/mvp-joe/codelens/internal/budget"
	"github.com/mvp-joe/codelens/internal/ranking"
)

// DefaultBudget is the default total budget in estimation units.
const DefaultBudget = 4000

// Config represents the complete codelens configuration.
// It can be loaded from .codelens/config.yml with environment variable overrides.
type Config struct {
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Ranking    RankingConfig    `yaml:"ranking" mapstructure:"ranking"`
	Budget     BudgetConfig     `yaml:"budget" mapstructure:"budget"`
	Logging    LoggingConfig    `yaml:"logging" mapstructure:"logging"`
}

// PathsConfig defines which files to index and which to ignore.
type PathsConfig struct {
	Code   []string `yaml:"code" mapstructure:"code"`     // glob patterns for source files
	Ignore []string `yaml:"ignore" mapstructure:"ignore"` // glob patterns to ignore
}

// StorageConfig locates the snippet database.
type StorageConfig struct {
	DBPath string `yaml:"db_path" mapstructure:"db_path"` // relative paths resolve against the project root
}

// ExtractionConfig bounds the extraction worker pool.
type ExtractionConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"` // 0 means one worker per CPU
}

// RankingConfig holds the scoring weights and the default focus fragments.
type RankingConfig struct {
	Weights ranking.Weights `yaml:"weights" mapstructure:"weights"`
	Focus   []string        `yaml:"focus" mapstructure:"focus"`
}

// BudgetConfig sets the summary budget and the unit estimator.
type BudgetConfig struct {
	Total        float64 `yaml:"total" mapstructure:"total"`
	CharsPerUnit float64 `yaml:"chars_per_unit" mapstructure:"chars_per_unit"`
}

// LoggingConfig sets the log level.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn or error
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Paths: PathsConfig{
			Code: []string{
				"**/*.py",
				"**/*.pyw",
			},
			Ignore: []string{
				".git/**",
				".venv/**",
				"venv/**",
				"env/**",
				"node_modules/**",
				"build/**",
				"dist/**",
				"**/__pycache__/**",
				"*.egg-info/**",
				".tox/**",
			},
		},
		Storage: StorageConfig{
			DBPath: ".codelens/snippets.db",
		},
		Extraction: ExtractionConfig{
			Workers: 0,
		},
		Ranking: RankingConfig{
			Weights: ranking.DefaultWeights(),
			Focus:   []string{},
		},
		Budget: BudgetConfig{
			Total:        DefaultBudget,
			CharsPerUnit: budget.DefaultCharsPerUnit,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// ResolveDBPath returns the database path, resolved against rootDir when
// it is relative.
func (c *Config) ResolveDBPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}

// Estimator returns the unit estimator configured by Budget.CharsPerUnit.
func (c *Config) Estimator() budget.Estimator {
	e := budget.DefaultEstimator()
	e.CharsPerUnit = c.Budget.CharsPerUnit
	return e
}
