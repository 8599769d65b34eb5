package budget

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidBudget indicates a negative or non-finite total budget.
	ErrInvalidBudget = errors.New("invalid budget")

	// ErrInvalidSize indicates a negative or non-finite section size.
	ErrInvalidSize = errors.New("invalid section size")
)

// FloorShare is the minimum share of the total each section receives when
// the floors are feasible.
const FloorShare = 0.05

// Section is a named part of the output with its unconstrained size.
type Section struct {
	Name string
	Raw  float64
}

// Quota is the budget granted to one section.
type Quota struct {
	Name  string  `json:"name"`
	Raw   float64 `json:"raw"`
	Units float64 `json:"units"`
}

const epsilon = 1e-9

// Allocate splits total across sections in proportion to their raw sizes.
// Every section gets at least FloorShare of total; any overshoot caused by
// the floors is taken evenly from the sections still above the floor until
// the quotas fit. When the floors alone exceed total the plain proportional
// split is returned. All-zero raw sizes split total evenly.
func Allocate(total float64, sections []Section) ([]Quota, error) {
	if total < 0 || math.IsNaN(total) || math.IsInf(total, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBudget, total)
	}
	var sum float64
	for _, s := range sections {
		if s.Raw < 0 || math.IsNaN(s.Raw) || math.IsInf(s.Raw, 0) {
			return nil, fmt.Errorf("%w: section %q has size %v", ErrInvalidSize, s.Name, s.Raw)
		}
		sum += s.Raw
	}
	if len(sections) == 0 {
		return nil, nil
	}

	quotas := make([]Quota, len(sections))
	for i, s := range sections {
		quotas[i] = Quota{Name: s.Name, Raw: s.Raw}
		if sum == 0 {
			quotas[i].Units = total / float64(len(sections))
		} else {
			quotas[i].Units = total * s.Raw / sum
		}
	}

	floor := total * FloorShare
	if float64(len(sections))*floor > total+epsilon {
		return quotas, nil
	}
	for i := range quotas {
		if quotas[i].Units < floor {
			quotas[i].Units = floor
		}
	}

	// Each round either removes all excess or pins at least one more
	// section at the floor, so the loop ends within len(sections) rounds.
	for round := 0; round <= len(quotas); round++ {
		excess := totalUnits(quotas) - total
		if excess <= epsilon {
			break
		}
		var above []int
		for i := range quotas {
			if quotas[i].Units > floor+epsilon {
				above = append(above, i)
			}
		}
		if len(above) == 0 {
			break
		}
		share := excess / float64(len(above))
		for _, i := range above {
			quotas[i].Units -= math.Min(share, quotas[i].Units-floor)
		}
	}
	return quotas, nil
}

func totalUnits(quotas []Quota) float64 {
	var sum float64
	for _, q := range quotas {
		sum += q.Units
	}
	return sum
}

// Lookup returns the quota for the named section, or zero.
func Lookup(quotas []Quota, name string) float64 {
	for _, q := range quotas {
		if q.Name == name {
			return q.Units
		}
	}
	return 0
}
