package config

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/codelens/internal/budget"
	"github.com/mvp-joe/codelens/internal/logging"
)

var (
	// ErrNoCodePatterns indicates an empty paths.code list
	ErrNoCodePatterns = errors.New("no code patterns")

	// ErrInvalidPattern indicates a glob pattern that does not compile
	ErrInvalidPattern = errors.New("invalid glob pattern")

	// ErrEmptyDBPath indicates a missing storage.db_path
	ErrEmptyDBPath = errors.New("empty database path")

	// ErrInvalidWorkers indicates a negative worker count
	ErrInvalidWorkers = errors.New("invalid worker count")

	// ErrInvalidCharsPerUnit indicates a non-positive estimator ratio
	ErrInvalidCharsPerUnit = errors.New("invalid chars per unit")

	// ErrInvalidLogLevel indicates an unknown logging level
	ErrInvalidLogLevel = errors.New("invalid log level")
)

// ConfigurationError reports an invalid configuration value. Err is a
// sentinel from this package, ranking.ErrInvalidWeight or
// budget.ErrInvalidBudget, wrapped with the offending value.
type ConfigurationError struct {
	Field string
	Err   error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) *ConfigurationError {
	return &ConfigurationError{Field: field, Err: err}
}

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	errs = append(errs, validatePaths(&cfg.Paths)...)
	errs = append(errs, validateStorage(&cfg.Storage)...)
	errs = append(errs, validateExtraction(&cfg.Extraction)...)
	errs = append(errs, validateRanking(&cfg.Ranking)...)
	errs = append(errs, validateBudget(&cfg.Budget)...)
	errs = append(errs, validateLogging(&cfg.Logging)...)

	return joinErrors(errs)
}

func validatePaths(cfg *PathsConfig) []error {
	var errs []error

	if len(cfg.Code) == 0 {
		errs = append(errs, invalid("paths.code", fmt.Errorf("%w: at least one pattern required", ErrNoCodePatterns)))
	}
	for _, p := range cfg.Code {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, invalid("paths.code", fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)))
		}
	}
	for _, p := range cfg.Ignore {
		if _, err := glob.Compile(p, '/'); err != nil {
			errs = append(errs, invalid("paths.ignore", fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)))
		}
	}
	return errs
}

func validateStorage(cfg *StorageConfig) []error {
	if strings.TrimSpace(cfg.DBPath) == "" {
		return []error{invalid("storage.db_path", ErrEmptyDBPath)}
	}
	return nil
}

func validateExtraction(cfg *ExtractionConfig) []error {
	// Zero means one worker per CPU
	if cfg.Workers < 0 {
		return []error{invalid("extraction.workers", fmt.Errorf("%w: cannot be negative, got %d", ErrInvalidWorkers, cfg.Workers))}
	}
	return nil
}

func validateRanking(cfg *RankingConfig) []error {
	if err := cfg.Weights.Validate(); err != nil {
		return []error{invalid("ranking.weights", err)}
	}
	return nil
}

func validateBudget(cfg *BudgetConfig) []error {
	var errs []error

	if cfg.Total < 0 || math.IsNaN(cfg.Total) || math.IsInf(cfg.Total, 0) {
		errs = append(errs, invalid("budget.total", fmt.Errorf("%w: must be a non-negative number, got %v", budget.ErrInvalidBudget, cfg.Total)))
	}
	if !(cfg.CharsPerUnit > 0) || math.IsInf(cfg.CharsPerUnit, 0) {
		errs = append(errs, invalid("budget.chars_per_unit", fmt.Errorf("%w: must be positive, got %v", ErrInvalidCharsPerUnit, cfg.CharsPerUnit)))
	}
	return errs
}

func validateLogging(cfg *LoggingConfig) []error {
	if !logging.ValidLevel(cfg.Level) {
		return []error{invalid("logging.level", fmt.Errorf("%w: %q (valid: debug, info, warn, error)", ErrInvalidLogLevel, cfg.Level))}
	}
	return nil
}

// validationErrors formats several errors as a list and keeps each one
// reachable through errors.Is and errors.As.
type validationErrors []error

func (v validationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, err := range v {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}

func (v validationErrors) Unwrap() []error {
	return v
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return validationErrors(errs)
	}
}
