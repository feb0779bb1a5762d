package owlracle

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"feeScope/internal/calendar"
	"feeScope/internal/model"
	"feeScope/internal/source"
)

const (
	DefaultBaseURL  = "https://api.owlracle.info/v4"
	DefaultNetwork  = "eth"
	DefaultInterval = time.Second
	requestTimeout  = 30 * time.Second

	TransactionFeesColumn = "transaction_fees"
	GasPricesColumn       = "gas_prices"
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	Network      string
	APIKey       string
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client reads daily gas candles from the Owlracle history endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	network    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

func NewClient(httpClient *http.Client, opts Options, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: requestTimeout}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Network == "" {
		opts.Network = DefaultNetwork
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		network:    opts.Network,
		apiKey:     opts.APIKey,
		limiter:    rate.NewLimiter(rate.Every(opts.Interval), 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		logger:     logger.With(zap.String("source", "owlracle")),
	}
}

// Candle is one daily history entry.
type Candle struct {
	Timestamp string `json:"timestamp"`
	TxFee     OHLC   `json:"txFee"`
	GasPrice  OHLC   `json:"gasPrice"`
}

type OHLC struct {
	Open  float64 `json:"open"`
	Close float64 `json:"close"`
	Low   float64 `json:"low"`
	High  float64 `json:"high"`
}

type historyResponse struct {
	Candles []Candle `json:"candles"`
}

// History fetches the daily candles of one window.
func (c *Client) History(ctx context.Context, w Window) ([]Candle, error) {
	query := url.Values{}
	if c.apiKey != "" {
		query.Set("apikey", c.apiKey)
	}
	query.Set("from", strconv.FormatInt(w.From.Unix(), 10))
	query.Set("to", strconv.FormatInt(w.To.Unix(), 10))
	query.Set("candles", "365")
	query.Set("timeframe", "1d")
	query.Set("txfee", "true")
	endpoint := fmt.Sprintf("%s/%s/history?%s", c.baseURL, c.network, query.Encode())

	var resp historyResponse
	err := source.WithRetry(ctx, c.maxRetries, c.backoff, c.logger, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		resp = historyResponse{}
		err := source.GetJSON(ctx, c.httpClient, endpoint, nil, &resp)
		if err != nil {
			c.logger.Warn("history request failed", zap.Int("year", w.Year), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("gas history %d: %w", w.Year, err)
	}
	return resp.Candles, nil
}

// GasTable fetches every year window between start and end and returns a
// daily-aligned table of closing transaction fees and gas prices.
func (c *Client) GasTable(ctx context.Context, start, end time.Time) (model.Table, error) {
	windows, err := YearWindows(start, end)
	if err != nil {
		return model.Table{}, err
	}

	byYear := make(map[int][]Candle, len(windows))
	for _, w := range windows {
		candles, err := c.History(ctx, w)
		if err != nil {
			return model.Table{}, err
		}
		byYear[w.Year] = candles
		c.logger.Info("gas history fetched", zap.Int("year", w.Year), zap.Int("candles", len(candles)))
	}

	table, err := BuildTable(byYear)
	if err != nil {
		return model.Table{}, err
	}
	return calendar.FillDaily(table, start)
}

// Fetcher returns a source.Fetcher over a fixed window.
func (c *Client) Fetcher(start, end time.Time) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context) (model.Table, error) {
		return c.GasTable(ctx, start, end)
	})
}

type gasRow struct {
	date     time.Time
	fee      float64
	gasPrice float64
}

// BuildTable keeps each candle only when its date falls in the year it was
// requested for, then sorts rows by date.
func BuildTable(byYear map[int][]Candle) (model.Table, error) {
	var rows []gasRow
	for year, candles := range byYear {
		for _, candle := range candles {
			date, err := candleDate(candle.Timestamp)
			if err != nil {
				return model.Table{}, err
			}
			if date.Year() != year {
				continue
			}
			rows = append(rows, gasRow{date: date, fee: candle.TxFee.Close, gasPrice: candle.GasPrice.Close})
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].date.Before(rows[j].date) })

	dates := make([]time.Time, len(rows))
	fees := make([]float64, len(rows))
	prices := make([]float64, len(rows))
	for i, r := range rows {
		dates[i] = r.date
		fees[i] = r.fee
		prices[i] = r.gasPrice
	}

	table := model.NewTable(dates)
	if err := table.AddColumn(TransactionFeesColumn, fees); err != nil {
		return model.Table{}, err
	}
	if err := table.AddColumn(GasPricesColumn, prices); err != nil {
		return model.Table{}, err
	}
	return table, nil
}

func candleDate(ts string) (time.Time, error) {
	datePart, _, _ := strings.Cut(ts, "T")
	d, err := time.Parse("2006-01-02", datePart)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse candle timestamp %q: %w", ts, err)
	}
	return d, nil
}
