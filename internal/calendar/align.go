package calendar

import (
	"fmt"
	"sort"
	"time"

	"feeScope/internal/model"
)

// Daily is the default upsampling frequency.
const Daily = 24 * time.Hour

// Align upsamples a table to a gapless calendar between its first and last
// date. Existing rows keep their values; inserted rows are all missing.
// Input dates must strictly ascend.
func Align(table model.Table, every time.Duration) (model.Table, error) {
	if every <= 0 || every%Daily != 0 {
		return model.Table{}, fmt.Errorf("frequency must be a positive whole number of days, got %s", every)
	}
	if err := table.Validate(); err != nil {
		return model.Table{}, err
	}
	if err := table.CheckSorted(); err != nil {
		return model.Table{}, err
	}
	if table.Len() == 0 {
		return table.Clone(), nil
	}

	first := table.Dates[0]
	last := table.Dates[table.Len()-1]

	dates := make([]time.Time, 0, int(last.Sub(first)/every)+1)
	for d := first; !d.After(last); d = d.Add(every) {
		dates = append(dates, d)
	}
	dates = mergeDates(dates, table.Dates)

	return reindex(table, dates), nil
}

// PrependStart inserts a single missing row dated start when the table's
// first observation is later, so every series shares a left boundary.
func PrependStart(table model.Table, start time.Time) model.Table {
	start = model.Day(start)
	if table.Len() > 0 && !table.Dates[0].After(start) {
		return table.Clone()
	}

	out := model.Table{Dates: append([]time.Time{start}, table.Dates...)}
	for _, c := range table.Columns {
		values := make([]float64, 0, len(c.Values)+1)
		values = append(values, model.Missing())
		values = append(values, c.Values...)
		out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
	}
	return out
}

// FillDaily prepends the required start row, if any, then aligns daily.
func FillDaily(table model.Table, start time.Time) (model.Table, error) {
	return Align(PrependStart(table, start), Daily)
}

// Span returns every day from start through end inclusive.
func Span(start, end time.Time) []time.Time {
	start, end = model.Day(start), model.Day(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		out = append(out, d)
	}
	return out
}

// mergeDates unions two ascending date slices. Off-grid observations are kept.
func mergeDates(grid, observed []time.Time) []time.Time {
	seen := make(map[time.Time]struct{}, len(grid))
	out := make([]time.Time, 0, len(grid))
	for _, d := range grid {
		seen[d] = struct{}{}
		out = append(out, d)
	}
	extra := false
	for _, d := range observed {
		if _, ok := seen[d]; !ok {
			out = append(out, d)
			extra = true
		}
	}
	if extra {
		sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	}
	return out
}

func reindex(table model.Table, dates []time.Time) model.Table {
	idx := table.Index()
	out := model.Table{Dates: dates}
	for _, c := range table.Columns {
		values := make([]float64, len(dates))
		for i, d := range dates {
			if src, ok := idx[d]; ok {
				values[i] = c.Values[src]
			} else {
				values[i] = model.Missing()
			}
		}
		out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
	}
	return out
}
