package merge

import (
	"fmt"
	"sort"
	"time"

	"feeScope/internal/model"
)

// Join inner-joins tables on date. Rows whose date is absent from any table
// are dropped; output dates ascend. Metric names must not collide.
func Join(tables ...model.Table) (model.Table, error) {
	if len(tables) == 0 {
		return model.Table{}, fmt.Errorf("join requires at least one table")
	}

	seen := make(map[string]struct{})
	indexes := make([]map[time.Time]int, len(tables))
	for n, t := range tables {
		if err := t.Validate(); err != nil {
			return model.Table{}, err
		}
		for _, name := range t.Names() {
			if _, ok := seen[name]; ok {
				return model.Table{}, fmt.Errorf("duplicate column %s across joined tables", name)
			}
			seen[name] = struct{}{}
		}
		indexes[n] = t.Index()
	}

	var dates []time.Time
	for _, d := range tables[0].Dates {
		shared := true
		for _, idx := range indexes[1:] {
			if _, ok := idx[d]; !ok {
				shared = false
				break
			}
		}
		if shared {
			dates = append(dates, d)
		}
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := model.Table{Dates: dates}
	for n, t := range tables {
		for _, c := range t.Columns {
			values := make([]float64, len(dates))
			for i, d := range dates {
				values[i] = c.Values[indexes[n][d]]
			}
			out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
		}
	}
	return out, nil
}

// Ratio divides element-wise. A missing operand or zero denominator yields
// missing.
func Ratio(numerator, denominator []float64) []float64 {
	out := make([]float64, len(numerator))
	for i := range numerator {
		n, d := numerator[i], denominator[i]
		if model.IsMissing(n) || model.IsMissing(d) || d == 0 {
			out[i] = model.Missing()
			continue
		}
		out[i] = n / d
	}
	return out
}
