package bitinfo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"feeScope/internal/model"
)

const page = `<html><script>var d = [[new Date("2019/12/31"),9],[new Date("2020/01/01"),1.5],` +
	`[new Date("2020/01/02"),null],[new Date("2020/01/03"),3],[new Date("2020/01/04"),4]];</script>` +
	`<div id="container"></div></html>`

func utc(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fakeLoader struct {
	pages map[string]string
	urls  []string
}

func (f *fakeLoader) Load(_ context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	html, ok := f.pages[url]
	if !ok {
		return "", errors.New("not found")
	}
	return html, nil
}

func TestExtractPayload(t *testing.T) {
	payload, err := ExtractPayload(page, utc(2020, 1, 1), utc(2020, 1, 3))
	require.NoError(t, err)
	values, err := ParseValues(payload)
	require.NoError(t, err)
	require.Len(t, values, 3)
	assert.Equal(t, 1.5, values[0])
	assert.True(t, model.IsMissing(values[1]))
	assert.Equal(t, 3.0, values[2])
}

func TestExtractPayloadFallsBackToLastPoint(t *testing.T) {
	payload, err := ExtractPayload(page, utc(2020, 1, 3), utc(2021, 1, 1))
	require.NoError(t, err)
	values, err := ParseValues(payload)
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 4}, values)
}

func TestExtractPayloadMissingStart(t *testing.T) {
	_, err := ExtractPayload(page, utc(2018, 1, 1), utc(2020, 1, 3))
	assert.Error(t, err)
}

func TestBuildTablePadsShortSeries(t *testing.T) {
	table, err := BuildTable([]Series{
		{Column: "a", Values: []float64{1, 2, 3, 4}},
		{Column: "b", Values: []float64{5}},
	}, utc(2020, 1, 1), utc(2020, 1, 3))
	require.NoError(t, err)
	require.Equal(t, 3, table.Len())

	a, _ := table.Column("a")
	assert.Equal(t, []float64{1, 2, 3}, a)
	b, _ := table.Column("b")
	assert.Equal(t, 5.0, b[0])
	assert.True(t, model.IsMissing(b[2]))
}

func TestScraperToken(t *testing.T) {
	loader := &fakeLoader{pages: map[string]string{
		"https://example.test/transactionfees-btc.html#alltime": page,
		"https://example.test/median_transaction_fee-btc.html#alltime": page,
	}}
	s := NewScraper(loader, "https://example.test/", nil)

	table, err := s.Token(context.Background(), []Stat{
		{Slug: "transactionfees-btc", Column: "average_transaction_fees"},
		{Slug: "median_transaction_fee-btc"},
	}, utc(2020, 1, 1), utc(2020, 1, 2))
	require.NoError(t, err)

	assert.Equal(t, []string{"average_transaction_fees", "median_transaction_fee_btc"}, table.Names())
	assert.Len(t, loader.urls, 2)
}

func TestScraperTokenLoaderError(t *testing.T) {
	s := NewScraper(&fakeLoader{}, "https://example.test/", nil)
	_, err := s.Token(context.Background(), []Stat{{Slug: "x"}}, utc(2020, 1, 1), utc(2020, 1, 2))
	assert.Error(t, err)
}
