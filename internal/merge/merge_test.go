package merge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func day(d int) time.Time {
	return time.Date(2022, 1, d, 0, 0, 0, 0, time.UTC)
}

func table(t *testing.T, days []int, cols map[string][]float64, order ...string) model.Table {
	t.Helper()
	dates := make([]time.Time, len(days))
	for i, d := range days {
		dates[i] = day(d)
	}
	tbl := model.NewTable(dates)
	for _, name := range order {
		require.NoError(t, tbl.AddColumn(name, cols[name]))
	}
	return tbl
}

func TestJoinIntersection(t *testing.T) {
	a := table(t, []int{1, 2, 3, 4}, map[string][]float64{"prices": {10, 20, 30, 40}}, "prices")
	b := table(t, []int{2, 3, 5}, map[string][]float64{"total_fees": {2, 3, 5}}, "total_fees")
	c := table(t, []int{1, 3, 5}, map[string][]float64{"transactions_count": {1, 3, 5}}, "transactions_count")

	out, err := Join(a, b, c)
	require.NoError(t, err)

	assert.Equal(t, []time.Time{day(3)}, out.Dates)
	assert.Equal(t, []string{"prices", "total_fees", "transactions_count"}, out.Names())
	prices, _ := out.Column("prices")
	fees, _ := out.Column("total_fees")
	assert.Equal(t, []float64{30}, prices)
	assert.Equal(t, []float64{3}, fees)
}

func TestJoinRejectsDuplicateColumns(t *testing.T) {
	a := table(t, []int{1}, map[string][]float64{"prices": {1}}, "prices")
	b := table(t, []int{1}, map[string][]float64{"prices": {2}}, "prices")
	_, err := Join(a, b)
	assert.Error(t, err)
}

func TestRatioDivideSafety(t *testing.T) {
	got := Ratio(
		[]float64{10, 10, model.Missing(), 9},
		[]float64{0, model.Missing(), 2, 3},
	)
	assert.True(t, model.IsMissing(got[0]))
	assert.True(t, model.IsMissing(got[1]))
	assert.True(t, model.IsMissing(got[2]))
	assert.Equal(t, 3.0, got[3])
}

func TestAverageFeeRule(t *testing.T) {
	ds := model.Dataset{
		"xrp_bit": table(t, []int{1, 2, 3}, map[string][]float64{
			"total_fees":         {100, 50, 7},
			"transactions_count": {10, 0, model.Missing()},
		}, "total_fees", "transactions_count"),
		"xrp_mes": table(t, []int{1, 2, 3}, map[string][]float64{
			"average_transaction_value": {1, 2, 3},
		}, "average_transaction_value"),
	}

	out, err := AverageFeeRule("xrp", "xrp_bit", "xrp_mes").Apply(ds)
	require.NoError(t, err)

	assert.False(t, out.Has("total_fees"))
	avg, ok := out.Column("average_transaction_fees")
	require.True(t, ok)
	assert.Equal(t, 10.0, avg[0])
	assert.True(t, model.IsMissing(avg[1]))
	assert.True(t, model.IsMissing(avg[2]))

	// sources are left intact
	src, _ := ds["xrp_bit"].Column("total_fees")
	assert.Equal(t, 100.0, src[0])
}

func TestApplyRulesMissingSource(t *testing.T) {
	_, err := ApplyRules(model.Dataset{}, DefaultRules())
	assert.Error(t, err)
}

func TestApplyRulesAddsAssets(t *testing.T) {
	ds := model.Dataset{
		"bsv_bit": table(t, []int{1}, map[string][]float64{"total_fees": {4}, "transactions_count": {2}}, "total_fees", "transactions_count"),
		"bsv_mes": table(t, []int{1}, map[string][]float64{"24h_volume": {9}}, "24h_volume"),
	}
	out, err := ApplyRules(ds, []Rule{AverageFeeRule("bsv", "bsv_bit", "bsv_mes")})
	require.NoError(t, err)
	assert.Contains(t, out, "bsv")
	assert.Contains(t, out, "bsv_bit")
	avg, _ := out["bsv"].Column("average_transaction_fees")
	assert.Equal(t, []float64{2}, avg)
}
