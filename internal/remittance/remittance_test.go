package remittance

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/forecast"
	"feeScope/internal/model"
)

const (
	lac         = "Latin America & Caribbean"
	lowerMiddle = "Lower middle income"
	upperMiddle = "Upper middle income"
)

func fixture(t *testing.T) (Flows, Lookup) {
	t.Helper()
	flows, err := ParseFlows(
		[]string{"Country Name", "Country Code", "2019 [YR2019]", "2020 [YR2020]", "2021 [YR2021]"},
		[][]string{
			{"Mexico", "MEX", "36000", "40000", "51000"},
			{"Haiti", "HTI", "3300", "..", "4500"},
			{"World", "WLD", "700000", "710000", "780000"},
		},
	)
	require.NoError(t, err)

	lookup, err := ParseLookup(
		[]string{"Country Code", "Region", "Income", "SpecialNotes"},
		[][]string{
			{"MEX", lac, upperMiddle, ""},
			{"HTI", lac, lowerMiddle, "fiscal year data"},
		},
	)
	require.NoError(t, err)
	return flows, lookup
}

func TestParseFlows(t *testing.T) {
	flows, _ := fixture(t)
	assert.Equal(t, []int{2019, 2020, 2021}, flows.Years)
	require.Len(t, flows.Rows, 3)
	assert.Equal(t, "HTI", flows.Rows[1].Country)
	assert.True(t, model.IsMissing(flows.Rows[1].Values[1]))

	_, err := ParseFlows([]string{"Country Name", "2019"}, nil)
	assert.Error(t, err)
	_, err = ParseFlows([]string{"Country Code", "Country Name"}, nil)
	assert.Error(t, err)
	_, err = ParseFlows([]string{"Country Code", "2019"}, [][]string{{"MEX", "n/a"}})
	assert.Error(t, err)
}

func TestMergeDropsUnknownCountries(t *testing.T) {
	flows, lookup := fixture(t)
	records := Merge(flows, lookup)
	require.Len(t, records, 2)
	assert.Equal(t, Record{Country: "MEX", Region: lac, Income: upperMiddle, Values: []float64{36000, 40000, 51000}}, records[0])
	assert.Equal(t, lowerMiddle, records[1].Income)
}

func TestPivotByRegion(t *testing.T) {
	flows, lookup := fixture(t)
	table, err := Pivot(Merge(flows, lookup), flows.Years, ByRegion)
	require.NoError(t, err)

	assert.Equal(t, []int{2019, 2020, 2021}, table.Years)
	assert.Equal(t, []string{lac}, table.Names())
	vals, _ := table.Column(lac)
	assert.Equal(t, []float64{19650, 40000, 27750}, vals)
}

func TestPivotByIncome(t *testing.T) {
	flows, lookup := fixture(t)
	table, err := Pivot(Merge(flows, lookup), flows.Years, ByIncome)
	require.NoError(t, err)

	assert.Equal(t, []string{lowerMiddle, upperMiddle}, table.Names())
	lower, _ := table.Column(lowerMiddle)
	assert.Equal(t, 3300.0, lower[0])
	assert.True(t, model.IsMissing(lower[1]))
	upper, _ := table.Column(upperMiddle)
	assert.Equal(t, []float64{36000, 40000, 51000}, upper)
}

func TestPivotFeedsForecast(t *testing.T) {
	flows, lookup := fixture(t)
	table, err := Pivot(Merge(flows, lookup), flows.Years, ByRegion)
	require.NoError(t, err)

	projected, err := forecast.Forecast(table, []int{2022})
	require.NoError(t, err)
	vals, ok := projected.Column(lac)
	require.True(t, ok)
	assert.InDelta(t, 37233.333333, vals[0], 1e-5)
}

func TestPivotWithoutGroups(t *testing.T) {
	_, err := Pivot([]Record{{Country: "XKX", Values: []float64{1}}}, []int{2019}, ByRegion)
	assert.True(t, errors.Is(err, model.ErrUndefinedAggregate))

	_, err = Pivot(nil, []int{2019}, Group("Lending"))
	assert.Error(t, err)
}

func TestParseGroup(t *testing.T) {
	g, err := ParseGroup(" Income ")
	require.NoError(t, err)
	assert.Equal(t, ByIncome, g)

	_, err = ParseGroup("continent")
	assert.Error(t, err)
}
