package stats

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/calendar"
	"feeScope/internal/model"
)

func TestDescribeValues(t *testing.T) {
	s := DescribeValues("fees", []float64{4, model.Missing(), 1, 3, 2})
	assert.Equal(t, 4, s.Count)
	assert.InDelta(t, 2.5, s.Mean, 1e-12)
	assert.Equal(t, 1.0, s.Min)
	assert.Equal(t, 4.0, s.Max)
	assert.InDelta(t, math.Sqrt(5.0/3.0), s.Std, 1e-12)
	assert.LessOrEqual(t, s.Q25, s.Median)
	assert.LessOrEqual(t, s.Median, s.Q75)
}

func TestDescribeEmpty(t *testing.T) {
	s := DescribeValues("fees", []float64{model.Missing()})
	assert.Equal(t, 0, s.Count)
	assert.True(t, math.IsNaN(s.Mean))
}

func TestMoments(t *testing.T) {
	m := Moments([]float64{1, 2, 3, 4, 100})
	assert.Greater(t, m.Skew, 0.0)
	assert.Greater(t, m.Std, 0.0)

	short := Moments([]float64{1})
	assert.True(t, math.IsNaN(short.Std))
}

func TestResampleWeekly(t *testing.T) {
	// 2023-01-02 is a Monday
	start := time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)
	tbl := model.NewTable(calendar.Span(start, start.AddDate(0, 0, 8)))
	require.NoError(t, tbl.AddColumn("fee_percentage", []float64{1, 2, 3, 4, 5, 6, 100, 7, model.Missing()}))

	out, err := ResampleWeekly(tbl, AggMedian)
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, time.Date(2023, 1, 8, 0, 0, 0, 0, time.UTC), out.Dates[0])
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), out.Dates[1])

	vals, _ := out.Column("fee_percentage")
	assert.Equal(t, 4.0, vals[0])
	assert.Equal(t, 7.0, vals[1])

	_, err = ResampleWeekly(tbl, Agg("max"))
	assert.Error(t, err)
}

func TestRollingMean(t *testing.T) {
	got := RollingMean([]float64{1, 3, model.Missing(), 5, 7}, 2, 1)
	assert.Equal(t, 1.0, got[0])
	assert.Equal(t, 2.0, got[1])
	assert.Equal(t, 3.0, got[2])
	assert.Equal(t, 5.0, got[3])
	assert.Equal(t, 6.0, got[4])

	strict := RollingMean([]float64{1, model.Missing()}, 2, 2)
	assert.True(t, model.IsMissing(strict[1]))
}
