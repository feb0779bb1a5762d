package model

// ScenarioRow summarizes one asset-year of fee percentages.
type ScenarioRow struct {
	Asset          string  `json:"asset"`
	Year           int     `json:"year"`
	MeanFeePercent float64 `json:"mean_fee_percent"`
	VolumeWeight   float64 `json:"volume_weight"`
}

// YearlyAggregate is the volume-weighted fee percentage across assets.
type YearlyAggregate struct {
	Year               int     `json:"year"`
	WeightedFeePercent float64 `json:"weighted_fee_percent"`
	Assets             int     `json:"assets"`
	TotalWeight        float64 `json:"total_weight"`
}

// YearTable holds one row per year, used by scenario summaries and forecasts.
type YearTable struct {
	Years   []int
	Columns []Column
}

// Column returns the values of a named column.
func (t YearTable) Column(name string) ([]float64, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Names returns the column names in order.
func (t YearTable) Names() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}
