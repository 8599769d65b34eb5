package ranking

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidWeight indicates a negative or non-finite weight.
var ErrInvalidWeight = errors.New("invalid ranking weight")

// Weights are the per-signal multipliers of Score. Unset weights are 0 and
// disable their signal.
type Weights struct {
	ReferenceCount    float64 `mapstructure:"reference_count" json:"reference_count" yaml:"reference_count"`
	Complexity        float64 `mapstructure:"complexity" json:"complexity" yaml:"complexity"`
	NameImportance    float64 `mapstructure:"name_importance" json:"name_importance" yaml:"name_importance"`
	Docstring         float64 `mapstructure:"docstring" json:"docstring" yaml:"docstring"`
	Inheritance       float64 `mapstructure:"inheritance" json:"inheritance" yaml:"inheritance"`
	ParameterCount    float64 `mapstructure:"parameter_count" json:"parameter_count" yaml:"parameter_count"`
	InnerElementCount float64 `mapstructure:"inner_element_count" json:"inner_element_count" yaml:"inner_element_count"`
	IsFocus           float64 `mapstructure:"is_focus" json:"is_focus" yaml:"is_focus"`
}

// DefaultWeights returns the stock weighting.
func DefaultWeights() Weights {
	return Weights{
		ReferenceCount:    3.0,
		Complexity:        2.0,
		NameImportance:    1.5,
		Docstring:         1.0,
		Inheritance:       2.5,
		ParameterCount:    1.0,
		InnerElementCount: 1.2,
		IsFocus:           10.0,
	}
}

// Validate rejects negative, NaN and infinite weights.
func (w Weights) Validate() error {
	fields := []struct {
		name  string
		value float64
	}{
		{"reference_count", w.ReferenceCount},
		{"complexity", w.Complexity},
		{"name_importance", w.NameImportance},
		{"docstring", w.Docstring},
		{"inheritance", w.Inheritance},
		{"parameter_count", w.ParameterCount},
		{"inner_element_count", w.InnerElementCount},
		{"is_focus", w.IsFocus},
	}
	var errs []error
	for _, f := range fields {
		if f.value < 0 || math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			errs = append(errs, fmt.Errorf("%w: %s must be a non-negative number, got %v", ErrInvalidWeight, f.name, f.value))
		}
	}
	return errors.Join(errs...)
}
