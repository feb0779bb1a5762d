package clean

import (
	"fmt"
	"sort"

	"feeScope/internal/model"
)

// DefaultLimit clips the lowest and highest 5% of each column.
const DefaultLimit = 0.05

// Bounds are the clip thresholds computed for one column.
type Bounds struct {
	Low  float64
	High float64
}

// Winsorize clips every metric column to its lower and upper rank limits.
// Missing values are excluded from the ranking and pass through unchanged.
// The clip count per tail is floor(limit*n), so a column of ten values at
// 0.05 has nothing clipped.
func Winsorize(table model.Table, lower, upper float64) (model.Table, error) {
	if err := checkLimits(lower, upper); err != nil {
		return model.Table{}, err
	}
	if err := table.Validate(); err != nil {
		return model.Table{}, err
	}

	out := table.Clone()
	for i, c := range out.Columns {
		bounds, ok := ColumnBounds(c.Values, lower, upper)
		if !ok {
			continue
		}
		for j, v := range c.Values {
			if model.IsMissing(v) {
				continue
			}
			if v < bounds.Low {
				out.Columns[i].Values[j] = bounds.Low
			} else if v > bounds.High {
				out.Columns[i].Values[j] = bounds.High
			}
		}
	}
	return out, nil
}

// ColumnBounds returns the clip thresholds for the observed values. The lowest
// floor(lower*n) values clip up to the next rank and the highest
// floor(upper*n) clip down, matching rank-based winsorization.
func ColumnBounds(values []float64, lower, upper float64) (Bounds, bool) {
	observed := make([]float64, 0, len(values))
	for _, v := range values {
		if !model.IsMissing(v) {
			observed = append(observed, v)
		}
	}
	n := len(observed)
	if n == 0 {
		return Bounds{}, false
	}
	sort.Float64s(observed)

	lowIdx := int(lower * float64(n))
	highIdx := n - int(upper*float64(n)) - 1
	if highIdx < lowIdx {
		highIdx = lowIdx
	}
	return Bounds{Low: observed[lowIdx], High: observed[highIdx]}, true
}

func checkLimits(lower, upper float64) error {
	if lower < 0 || lower >= 1 || upper < 0 || upper >= 1 {
		return fmt.Errorf("winsorize limits must be in [0, 1): got (%g, %g)", lower, upper)
	}
	if lower+upper >= 1 {
		return fmt.Errorf("winsorize limits sum to %g, must be < 1", lower+upper)
	}
	return nil
}
