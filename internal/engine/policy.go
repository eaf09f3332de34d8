package engine

import (
	"fmt"
	"math"

	"github.com/hupe1980/scalebloom/internal/counting"
)

// MinGrowthFactor is the smallest accepted Policy.GrowthFactor.
const MinGrowthFactor = 2

// Policy decides when the active sub-filter is sealed and how the next one
// is sized.
//
// Sub-filter i is sized for Capacity * GrowthFactor^i elements at a budget of
// ErrorRate * TighteningRatio^(i+1). With TighteningRatio < 1 the budgets form
// a geometric series whose sum stays below ErrorRate, which bounds the
// aggregate false-positive rate of the OR across all sub-filters.
type Policy struct {
	// FillThreshold is the fill ratio (adds / capacity) above which the active
	// sub-filter is sealed. Must be in (0, 1].
	FillThreshold float64

	// GrowthFactor multiplies the capacity of each new sub-filter. Must be at
	// least MinGrowthFactor.
	GrowthFactor uint64

	// TighteningRatio multiplies the error budget of each new sub-filter.
	// Must be in (0, 1).
	TighteningRatio float64
}

// DefaultPolicy returns the default scaling policy.
func DefaultPolicy() Policy {
	return Policy{
		FillThreshold:   0.8,
		GrowthFactor:    MinGrowthFactor,
		TighteningRatio: 0.5,
	}
}

func (p Policy) validate() error {
	if math.IsNaN(p.FillThreshold) || p.FillThreshold <= 0 || p.FillThreshold > 1 {
		return &ArgumentError{Field: "fill threshold", Reason: "must be in (0, 1]"}
	}
	if p.GrowthFactor < MinGrowthFactor {
		return &ArgumentError{Field: "growth factor", Reason: fmt.Sprintf("must be at least %d", MinGrowthFactor)}
	}
	if math.IsNaN(p.TighteningRatio) || p.TighteningRatio <= 0 || p.TighteningRatio >= 1 {
		return &ArgumentError{Field: "tightening ratio", Reason: "must be in (0, 1)"}
	}
	return nil
}

// plan returns the geometry of sub-filter i for a filter of the given target
// capacity and error rate.
func (p Policy) plan(i int, capacity uint64, errorRate float64) counting.Geometry {
	c := capacity
	for j := 0; j < i; j++ {
		if c > math.MaxUint32/p.GrowthFactor {
			c = math.MaxUint32 // saturate
			break
		}
		c *= p.GrowthFactor
	}
	budget := errorRate * math.Pow(p.TighteningRatio, float64(i+1))
	return counting.Size(c, budget)
}

// shouldSeal reports whether a sub-filter with the given adds and capacity
// has crossed the fill threshold.
func (p Policy) shouldSeal(adds, capacity uint64) bool {
	return float64(adds)/float64(capacity) > p.FillThreshold
}
