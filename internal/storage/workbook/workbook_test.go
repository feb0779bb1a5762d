package workbook

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func sampleTable(t *testing.T) model.Table {
	t.Helper()
	start := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	tbl := model.NewTable([]time.Time{start, start.AddDate(0, 0, 1), start.AddDate(0, 0, 2)})
	require.NoError(t, tbl.AddColumn("prices", []float64{1.25, model.Missing(), 3}))
	require.NoError(t, tbl.AddColumn("total_volumes", []float64{10, 20, model.Missing()}))
	return tbl
}

func TestWriteAndReadTables(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "raw.xlsx")
	tbl := sampleTable(t)
	require.NoError(t, WriteTables(path, map[string]model.Table{"btc": tbl, "eth": tbl}))

	sheets, err := Sheets(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"btc", "eth"}, sheets)

	ds, err := ReadTables(path, "btc")
	require.NoError(t, err)
	got := ds["btc"]
	require.Equal(t, tbl.Dates, got.Dates)
	assert.Equal(t, []string{"prices", "total_volumes"}, got.Names())

	prices, _ := got.Column("prices")
	assert.Equal(t, 1.25, prices[0])
	assert.True(t, model.IsMissing(prices[1]))
	vols, _ := got.Column("total_volumes")
	assert.True(t, model.IsMissing(vols[2]), "trailing empty cell reads back as missing")
}

func TestWriteTablesReplacesSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw.xlsx")
	require.NoError(t, WriteTables(path, map[string]model.Table{"btc": sampleTable(t), "eth": sampleTable(t)}))

	short := model.NewTable([]time.Time{time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, short.AddColumn("prices", []float64{7}))
	require.NoError(t, WriteTables(path, map[string]model.Table{"btc": short}))

	ds, err := ReadTables(path)
	require.NoError(t, err)
	assert.Equal(t, 1, ds["btc"].Len())
	assert.Equal(t, 3, ds["eth"].Len())
}

func TestYearTableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.xlsx")
	yt := model.YearTable{
		Years:   []int{2019, 2020},
		Columns: []model.Column{{Name: "crypto", Values: []float64{1.5, model.Missing()}}},
	}
	require.NoError(t, WriteYearTables(path, map[string]model.YearTable{"average_case": yt}))

	got, err := ReadYearTable(path, "average_case")
	require.NoError(t, err)
	assert.Equal(t, []int{2019, 2020}, got.Years)
	vals, ok := got.Column("crypto")
	require.True(t, ok)
	assert.Equal(t, 1.5, vals[0])
	assert.True(t, model.IsMissing(vals[1]))
}

func TestWriteScenariosAndAggregates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.xlsx")
	require.NoError(t, WriteScenarios(path, "scenarios", []model.ScenarioRow{
		{Asset: "btc", Year: 2020, MeanFeePercent: 0.5, VolumeWeight: 100},
	}))
	require.NoError(t, WriteAggregates(path, "aggregates", []model.YearlyAggregate{
		{Year: 2020, WeightedFeePercent: 0.5, Assets: 1, TotalWeight: 100},
	}))

	sheets, err := Sheets(path)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"scenarios", "aggregates"}, sheets)
}

func TestReadTablesRejectsBadHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.xlsx")
	require.NoError(t, WriteYearTables(path, map[string]model.YearTable{"y": {Years: []int{2020}}}))
	_, err := ReadTables(path, "y")
	assert.Error(t, err)
}

func TestSinkWritesToTarget(t *testing.T) {
	dir := t.TempDir()
	api := filepath.Join(dir, "api.xlsx")
	scraped := filepath.Join(dir, "scraped.xlsx")

	var sink Sink
	require.NoError(t, sink.WriteSheet(api, "btc", sampleTable(t)))
	require.NoError(t, sink.WriteSheet(scraped, "btc", sampleTable(t)))
	require.NoError(t, sink.WriteSheet(scraped, "xrp_mes", sampleTable(t)))

	apiSheets, err := Sheets(api)
	require.NoError(t, err)
	assert.Equal(t, []string{"btc"}, apiSheets)

	scrapedSheets, err := Sheets(scraped)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"btc", "xrp_mes"}, scrapedSheets)
}

func TestWriteRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "analysis.xlsx")
	require.NoError(t, WriteRecords(path, "summary", []string{"asset", "mean"}, [][]any{
		{"btc", 1.5},
		{"eth", model.Missing()},
	}))
	sheets, err := Sheets(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"summary"}, sheets)

	header, rows, err := ReadRecords(path, "summary")
	require.NoError(t, err)
	assert.Equal(t, []string{"asset", "mean"}, header)
	assert.Equal(t, [][]string{{"btc", "1.5"}, {"eth", ""}}, rows)

	_, _, err = ReadRecords(path, "missing")
	assert.Error(t, err)
}
