package fees

import (
	"fmt"
	"sort"

	"feeScope/internal/model"
)

// ScenarioOptions names the columns the scenario table reads.
type ScenarioOptions struct {
	PercentageColumn string
	VolumeColumn     string
}

func (o ScenarioOptions) withDefaults() ScenarioOptions {
	if o.PercentageColumn == "" {
		o.PercentageColumn = PercentageColumn
	}
	if o.VolumeColumn == "" {
		o.VolumeColumn = VolumeColumn
	}
	return o
}

// Years returns the inclusive range from..to.
func Years(from, to int) []int {
	var out []int
	for y := from; y <= to; y++ {
		out = append(out, y)
	}
	return out
}

// ScenarioTable computes one row per asset and year: the mean fee percentage
// over the year's rows that have one, and the mean volume over those rows.
// A year without qualifying rows is ErrUndefinedAggregate.
func ScenarioTable(datasets model.Dataset, years []int, opts ScenarioOptions) ([]model.ScenarioRow, error) {
	opts = opts.withDefaults()

	var rows []model.ScenarioRow
	for _, asset := range datasets.Keys() {
		assetRows, err := assetScenarios(asset, datasets[asset], years, opts)
		if err != nil {
			return nil, err
		}
		rows = append(rows, assetRows...)
	}
	return rows, nil
}

func assetScenarios(asset string, table model.Table, years []int, opts ScenarioOptions) ([]model.ScenarioRow, error) {
	pct, ok := table.Column(opts.PercentageColumn)
	if !ok {
		return nil, fmt.Errorf("asset %s: missing column %s", asset, opts.PercentageColumn)
	}
	volume, ok := table.Column(opts.VolumeColumn)
	if !ok {
		return nil, fmt.Errorf("asset %s: missing column %s", asset, opts.VolumeColumn)
	}

	wanted := make(map[int]*yearAccumulator, len(years))
	for _, y := range years {
		wanted[y] = &yearAccumulator{}
	}
	for i, d := range table.Dates {
		if acc, ok := wanted[d.Year()]; ok {
			acc.add(pct[i], volume[i])
		}
	}

	rows := make([]model.ScenarioRow, 0, len(years))
	for _, y := range years {
		acc := wanted[y]
		mean, ok := acc.meanFee()
		if !ok {
			return nil, fmt.Errorf("%w: asset %s has no fee percentage in %d", model.ErrUndefinedAggregate, asset, y)
		}
		rows = append(rows, model.ScenarioRow{
			Asset:          asset,
			Year:           y,
			MeanFeePercent: mean,
			VolumeWeight:   acc.meanVolume(),
		})
	}
	return rows, nil
}

// WeightedAggregate groups rows by year and returns the volume-weighted mean
// fee percentage. Rows with a missing fee or weight are skipped. A year whose
// weights sum to zero is ErrUndefinedAggregate.
func WeightedAggregate(rows []model.ScenarioRow) ([]model.YearlyAggregate, error) {
	type sums struct {
		weighted float64
		weight   float64
		assets   int
	}
	byYear := make(map[int]*sums)
	for _, r := range rows {
		s := byYear[r.Year]
		if s == nil {
			s = &sums{}
			byYear[r.Year] = s
		}
		if model.IsMissing(r.MeanFeePercent) || model.IsMissing(r.VolumeWeight) {
			continue
		}
		s.weighted += r.MeanFeePercent * r.VolumeWeight
		s.weight += r.VolumeWeight
		s.assets++
	}

	years := make([]int, 0, len(byYear))
	for y := range byYear {
		years = append(years, y)
	}
	sort.Ints(years)

	out := make([]model.YearlyAggregate, 0, len(years))
	for _, y := range years {
		s := byYear[y]
		if s.weight == 0 {
			return nil, fmt.Errorf("%w: total volume weight is zero for %d", model.ErrUndefinedAggregate, y)
		}
		out = append(out, model.YearlyAggregate{
			Year:               y,
			WeightedFeePercent: s.weighted / s.weight,
			Assets:             s.assets,
			TotalWeight:        s.weight,
		})
	}
	return out, nil
}

// GasScenario returns, per year, the mean gas fee as a percentage of a fixed
// transfer amount.
func GasScenario(table model.Table, years []int, feeCol string, transfer float64) (model.YearTable, error) {
	if transfer <= 0 {
		return model.YearTable{}, fmt.Errorf("transfer amount must be positive")
	}
	if feeCol == "" {
		feeCol = GasFeeColumn
	}
	fee, ok := table.Column(feeCol)
	if !ok {
		return model.YearTable{}, fmt.Errorf("missing column %s", feeCol)
	}

	acc := make(map[int]*yearAccumulator, len(years))
	for _, y := range years {
		acc[y] = &yearAccumulator{}
	}
	for i, d := range table.Dates {
		if a, ok := acc[d.Year()]; ok {
			a.add(fee[i], model.Missing())
		}
	}

	out := model.YearTable{Years: append([]int(nil), years...)}
	values := make([]float64, len(years))
	for n, y := range years {
		mean, ok := acc[y].meanFee()
		if !ok {
			return model.YearTable{}, fmt.Errorf("%w: no gas fees in %d", model.ErrUndefinedAggregate, y)
		}
		values[n] = mean / transfer * 100
	}
	out.Columns = []model.Column{{Name: "stablecoin", Values: values}}
	return out, nil
}

// AggregateTable reshapes yearly aggregates into a single-column year table.
func AggregateTable(aggs []model.YearlyAggregate, name string) model.YearTable {
	out := model.YearTable{}
	values := make([]float64, 0, len(aggs))
	for _, a := range aggs {
		out.Years = append(out.Years, a.Year)
		values = append(values, a.WeightedFeePercent)
	}
	out.Columns = []model.Column{{Name: name, Values: values}}
	return out
}
