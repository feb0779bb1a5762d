package forecast

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"feeScope/internal/model"
)

// Line is an ordinary least squares fit y = Intercept + Slope*year.
type Line struct {
	Intercept float64
	Slope     float64
	RSquared  float64
	Points    int
}

// At evaluates the line at year.
func (l Line) At(year int) float64 {
	return l.Intercept + l.Slope*float64(year)
}

// Fit regresses values on years, skipping missing values. Fewer than two
// points is ErrInsufficientData.
func Fit(years []int, values []float64) (Line, error) {
	xs := make([]float64, 0, len(years))
	ys := make([]float64, 0, len(years))
	for i, y := range years {
		if model.IsMissing(values[i]) {
			continue
		}
		xs = append(xs, float64(y))
		ys = append(ys, values[i])
	}
	if len(xs) < 2 {
		return Line{}, fmt.Errorf("%w: need at least 2 points, got %d", model.ErrInsufficientData, len(xs))
	}
	if distinct(xs) < 2 {
		return Line{}, fmt.Errorf("%w: need at least 2 distinct years", model.ErrInsufficientData)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return Line{
		Intercept: alpha,
		Slope:     beta,
		RSquared:  stat.RSquared(xs, ys, nil, alpha, beta),
		Points:    len(xs),
	}, nil
}

// Forecast fits each column of table against its years and evaluates the
// line at every target year. Values are not clamped.
func Forecast(table model.YearTable, targets []int) (model.YearTable, error) {
	if len(targets) == 0 {
		return model.YearTable{}, fmt.Errorf("no target years")
	}

	out := model.YearTable{Years: append([]int(nil), targets...)}
	for _, c := range table.Columns {
		if len(c.Values) != len(table.Years) {
			return model.YearTable{}, fmt.Errorf("column %s has %d values, table has %d years", c.Name, len(c.Values), len(table.Years))
		}
		line, err := Fit(table.Years, c.Values)
		if err != nil {
			return model.YearTable{}, fmt.Errorf("column %s: %w", c.Name, err)
		}
		values := make([]float64, len(targets))
		for i, y := range targets {
			values[i] = line.At(y)
		}
		out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
	}
	return out, nil
}

// NextYears returns the n years after the table's last year.
func NextYears(table model.YearTable, n int) []int {
	if len(table.Years) == 0 {
		return nil
	}
	last := table.Years[0]
	for _, y := range table.Years {
		if y > last {
			last = y
		}
	}
	out := make([]int, n)
	for i := range out {
		out[i] = last + i + 1
	}
	return out
}

func distinct(xs []float64) int {
	seen := make(map[float64]struct{}, len(xs))
	for _, x := range xs {
		seen[x] = struct{}{}
	}
	return len(seen)
}
