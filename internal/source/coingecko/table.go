package coingecko

import (
	"sort"
	"time"

	"feeScope/internal/calendar"
	"feeScope/internal/clean"
	"feeScope/internal/model"
)

const (
	PricesColumn       = "prices"
	MarketCapsColumn   = "market_caps"
	TotalVolumesColumn = "total_volumes"
)

// Table keys each series by UTC date. When a date has several points the
// last one wins.
func (m MarketChart) Table() (model.Table, error) {
	series := []struct {
		name   string
		points [][2]float64
	}{
		{PricesColumn, m.Prices},
		{MarketCapsColumn, m.MarketCaps},
		{TotalVolumesColumn, m.TotalVolumes},
	}

	byDate := make([]map[time.Time]float64, len(series))
	seen := make(map[time.Time]struct{})
	for i, s := range series {
		byDate[i] = make(map[time.Time]float64, len(s.points))
		for _, p := range s.points {
			day := model.Day(time.UnixMilli(int64(p[0])))
			byDate[i][day] = p[1]
			seen[day] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	table := model.NewTable(dates)
	for i, s := range series {
		values := make([]float64, len(dates))
		for j, d := range dates {
			v, ok := byDate[i][d]
			if !ok {
				v = model.Missing()
			}
			values[j] = v
		}
		if err := table.AddColumn(s.name, values); err != nil {
			return model.Table{}, err
		}
	}
	return table, nil
}

// Normalize prepends the required start row, aligns daily and turns zero
// readings into missing values.
func Normalize(table model.Table, start time.Time) (model.Table, error) {
	filled, err := calendar.FillDaily(table, start)
	if err != nil {
		return model.Table{}, err
	}
	return clean.ReplaceZeros(filled), nil
}
