package stats

import (
	"fmt"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"feeScope/internal/model"
)

// Agg reduces a bucket of observed values.
type Agg string

const (
	AggMean   Agg = "mean"
	AggMedian Agg = "median"
)

// ResampleWeekly buckets rows into weeks ending on Sunday, labelled by that
// Sunday, and reduces each column with agg. Empty buckets are missing.
func ResampleWeekly(table model.Table, agg Agg) (model.Table, error) {
	if agg != AggMean && agg != AggMedian {
		return model.Table{}, fmt.Errorf("unknown aggregation %q", agg)
	}

	var labels []time.Time
	bucketOf := make([]int, table.Len())
	pos := make(map[time.Time]int)
	for i, d := range table.Dates {
		label := weekEnd(d)
		n, ok := pos[label]
		if !ok {
			n = len(labels)
			pos[label] = n
			labels = append(labels, label)
		}
		bucketOf[i] = n
	}

	order := make([]int, len(labels))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool { return labels[order[a]].Before(labels[order[b]]) })

	out := model.Table{}
	for _, n := range order {
		out.Dates = append(out.Dates, labels[n])
	}
	for _, c := range table.Columns {
		buckets := make([][]float64, len(labels))
		for i, v := range c.Values {
			if !model.IsMissing(v) {
				buckets[bucketOf[i]] = append(buckets[bucketOf[i]], v)
			}
		}
		values := make([]float64, len(order))
		for k, n := range order {
			values[k] = reduce(buckets[n], agg)
		}
		out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
	}
	return out, nil
}

// RollingMean averages a trailing window, requiring minPeriods observed values.
func RollingMean(values []float64, window, minPeriods int) []float64 {
	if minPeriods < 1 {
		minPeriods = 1
	}
	out := make([]float64, len(values))
	for i := range values {
		start := i - window + 1
		if start < 0 {
			start = 0
		}
		obs := Observed(values[start : i+1])
		if len(obs) < minPeriods {
			out[i] = model.Missing()
			continue
		}
		out[i] = stat.Mean(obs, nil)
	}
	return out
}

func reduce(bucket []float64, agg Agg) float64 {
	if len(bucket) == 0 {
		return model.Missing()
	}
	if agg == AggMean {
		return stat.Mean(bucket, nil)
	}
	sorted := append([]float64(nil), bucket...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func weekEnd(d time.Time) time.Time {
	d = model.Day(d)
	offset := (7 - int(d.Weekday())) % 7
	return d.AddDate(0, 0, offset)
}
