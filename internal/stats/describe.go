package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"feeScope/internal/model"
)

// Summary describes the observed values of one column.
type Summary struct {
	Column string
	Count  int
	Mean   float64
	Std    float64
	Min    float64
	Q25    float64
	Median float64
	Q75    float64
	Max    float64
}

// Shape holds the dispersion and shape statistics of a fee series.
type Shape struct {
	Std      float64
	Skew     float64
	Kurtosis float64
}

// Describe summarizes every column; missing values are excluded.
func Describe(table model.Table) []Summary {
	out := make([]Summary, 0, len(table.Columns))
	for _, c := range table.Columns {
		out = append(out, DescribeValues(c.Name, c.Values))
	}
	return out
}

// DescribeValues summarizes a single series.
func DescribeValues(name string, values []float64) Summary {
	obs := Observed(values)
	s := Summary{Column: name, Count: len(obs)}
	if len(obs) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}
	sort.Float64s(obs)
	s.Mean, s.Std = stat.MeanStdDev(obs, nil)
	s.Min = floats.Min(obs)
	s.Max = floats.Max(obs)
	s.Q25 = stat.Quantile(0.25, stat.LinInterp, obs, nil)
	s.Median = stat.Quantile(0.5, stat.LinInterp, obs, nil)
	s.Q75 = stat.Quantile(0.75, stat.LinInterp, obs, nil)
	return s
}

// Moments returns standard deviation, skewness and excess kurtosis.
func Moments(values []float64) Shape {
	obs := Observed(values)
	if len(obs) < 2 {
		return Shape{Std: math.NaN(), Skew: math.NaN(), Kurtosis: math.NaN()}
	}
	return Shape{
		Std:      stat.StdDev(obs, nil),
		Skew:     stat.Skew(obs, nil),
		Kurtosis: stat.ExKurtosis(obs, nil),
	}
}

// Observed drops missing values.
func Observed(values []float64) []float64 {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if !model.IsMissing(v) {
			out = append(out, v)
		}
	}
	return out
}
