package owlracle

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

func TestBuildTableFiltersOtherYears(t *testing.T) {
	byYear := map[int][]Candle{
		2022: {
			{Timestamp: "2022-01-02T00:00:00.000Z", TxFee: OHLC{Close: 2}, GasPrice: OHLC{Close: 20}},
			{Timestamp: "2021-12-31T00:00:00.000Z", TxFee: OHLC{Close: 9}, GasPrice: OHLC{Close: 90}},
			{Timestamp: "2022-01-01T00:00:00.000Z", TxFee: OHLC{Close: 1}, GasPrice: OHLC{Close: 10}},
		},
	}
	table, err := BuildTable(byYear)
	require.NoError(t, err)
	require.Equal(t, 2, table.Len())
	assert.Equal(t, utc(2022, 1, 1), table.Dates[0])

	fees, _ := table.Column(TransactionFeesColumn)
	assert.Equal(t, []float64{1, 2}, fees)
	prices, _ := table.Column(GasPricesColumn)
	assert.Equal(t, []float64{10, 20}, prices)
}

func TestBuildTableBadTimestamp(t *testing.T) {
	_, err := BuildTable(map[int][]Candle{2022: {{Timestamp: "yesterday"}}})
	assert.Error(t, err)
}

func TestGasTable(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apikey"))
		assert.Equal(t, "1d", r.URL.Query().Get("timeframe"))
		from := r.URL.Query().Get("from")
		year := 2021
		if from == fmt.Sprint(utc(2022, 1, 1).Unix()) {
			year = 2022
		}
		_, _ = fmt.Fprintf(w, `{"candles":[
			{"timestamp":"%d-12-30T00:00:00Z","txFee":{"close":%d},"gasPrice":{"close":1}},
			{"timestamp":"%d-01-01T00:00:00Z","txFee":{"close":99},"gasPrice":{"close":1}}
		]}`, year, year, year+1)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), Options{BaseURL: srv.URL, APIKey: "secret", Interval: time.Millisecond}, nil)
	table, err := client.GasTable(context.Background(), utc(2021, 12, 30), utc(2022, 6, 1))
	require.NoError(t, err)

	assert.Equal(t, []string{"/eth/history", "/eth/history"}, paths)
	assert.Equal(t, utc(2021, 12, 30), table.Dates[0])
	assert.Equal(t, utc(2022, 12, 30), table.Dates[table.Len()-1])

	fees, _ := table.Column(TransactionFeesColumn)
	assert.Equal(t, 2021.0, fees[0])
	assert.Equal(t, 2022.0, fees[len(fees)-1])
	assert.True(t, model.IsMissing(fees[1]))
}
