package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func sparseTable(t *testing.T) model.Table {
	t.Helper()
	tbl := model.NewTable([]time.Time{day(2020, 2, 27), day(2020, 3, 1), day(2020, 3, 4)})
	require.NoError(t, tbl.AddColumn("prices", []float64{1, 0, 3}))
	require.NoError(t, tbl.AddColumn("total_volumes", []float64{10, model.Missing(), 30}))
	return tbl
}

func TestAlignCompleteness(t *testing.T) {
	in := sparseTable(t)
	out, err := Align(in, Daily)
	require.NoError(t, err)

	require.Equal(t, 7, out.Len())
	for i := 1; i < out.Len(); i++ {
		assert.Equal(t, out.Dates[i-1].AddDate(0, 0, 1), out.Dates[i])
	}
	assert.Equal(t, in.Dates[0], out.Dates[0])
	assert.Equal(t, in.Dates[2], out.Dates[out.Len()-1])
}

func TestAlignPreservesValues(t *testing.T) {
	in := sparseTable(t)
	out, err := Align(in, Daily)
	require.NoError(t, err)

	idx := out.Index()
	for _, c := range in.Columns {
		aligned, ok := out.Column(c.Name)
		require.True(t, ok, c.Name)
		for i, d := range in.Dates {
			want, got := c.Values[i], aligned[idx[d]]
			if model.IsMissing(want) {
				assert.True(t, model.IsMissing(got), "%s at %s", c.Name, d)
				continue
			}
			assert.Equal(t, want, got, "%s at %s", c.Name, d)
		}
	}

	// zero stays a real observation, inserted rows are missing
	prices, _ := out.Column("prices")
	assert.Equal(t, 0.0, prices[idx[day(2020, 3, 1)]])
	assert.True(t, model.IsMissing(prices[idx[day(2020, 2, 28)]]))
	assert.True(t, model.IsMissing(prices[idx[day(2020, 2, 29)]]))
}

func TestAlignRejectsUnsorted(t *testing.T) {
	tbl := model.NewTable([]time.Time{day(2020, 1, 2), day(2020, 1, 1)})
	require.NoError(t, tbl.AddColumn("prices", []float64{1, 2}))

	_, err := Align(tbl, Daily)
	assert.True(t, errors.Is(err, model.ErrUnsortedInput))
}

func TestAlignRejectsBadFrequency(t *testing.T) {
	_, err := Align(sparseTable(t), time.Hour)
	assert.Error(t, err)
}

func TestAlignDoesNotMutateInput(t *testing.T) {
	in := sparseTable(t)
	_, err := Align(in, Daily)
	require.NoError(t, err)
	assert.Equal(t, 3, in.Len())
}

func TestPrependStart(t *testing.T) {
	in := sparseTable(t)
	out := PrependStart(in, day(2020, 2, 25))
	require.Equal(t, 4, out.Len())
	assert.Equal(t, day(2020, 2, 25), out.Dates[0])
	prices, _ := out.Column("prices")
	assert.True(t, model.IsMissing(prices[0]))

	same := PrependStart(in, day(2020, 2, 27))
	assert.Equal(t, 3, same.Len())
}

func TestFillDaily(t *testing.T) {
	out, err := FillDaily(sparseTable(t), day(2020, 2, 20))
	require.NoError(t, err)
	assert.Equal(t, day(2020, 2, 20), out.Dates[0])
	assert.Equal(t, 14, out.Len())
}

func TestSpan(t *testing.T) {
	days := Span(day(2019, 12, 30), day(2020, 1, 2))
	assert.Len(t, days, 4)
	assert.Equal(t, day(2020, 1, 2), days[3])
}
