package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"feeScope/internal/model"
	"feeScope/internal/source"
)

const (
	DefaultBaseURL  = "https://api.coingecko.com/api/v3"
	DefaultCurrency = "usd"
	// DefaultInterval keeps the free tier from throttling consecutive calls.
	DefaultInterval = 3 * time.Second
	requestTimeout  = 30 * time.Second
)

// Options configures a Client.
type Options struct {
	BaseURL      string
	APIKey       string
	Interval     time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client calls the CoinGecko market chart API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
	logger     *zap.Logger
}

// NewClient builds a rate-limited client. A nil httpClient gets a default with a timeout.
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
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = time.Second
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		apiKey:     opts.APIKey,
		limiter:    rate.NewLimiter(rate.Every(opts.Interval), 1),
		maxRetries: opts.MaxRetries,
		backoff:    opts.RetryBackoff,
		logger:     logger.With(zap.String("source", "coingecko")),
	}
}

// MarketChart is the raw market_chart/range payload. Points are [ms, value].
type MarketChart struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// MarketChartRange fetches prices, market caps and volumes for coinID between
// 00:00:00 UTC on start and 23:59:59 UTC on end.
func (c *Client) MarketChartRange(ctx context.Context, coinID, currency string, start, end time.Time) (MarketChart, error) {
	if coinID == "" {
		return MarketChart{}, fmt.Errorf("coin id is required")
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	from := model.Day(start)
	to := model.Day(end).Add(24*time.Hour - time.Second)
	if to.Before(from) {
		return MarketChart{}, fmt.Errorf("end %s is before start %s", end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	query := url.Values{}
	query.Set("vs_currency", currency)
	query.Set("from", strconv.FormatInt(from.Unix(), 10))
	query.Set("to", strconv.FormatInt(to.Unix(), 10))
	endpoint := fmt.Sprintf("%s/coins/%s/market_chart/range?%s", c.baseURL, url.PathEscape(coinID), query.Encode())

	header := http.Header{}
	if c.apiKey != "" {
		header.Set("x-cg-demo-api-key", c.apiKey)
	}

	var chart MarketChart
	err := source.WithRetry(ctx, c.maxRetries, c.backoff, c.logger, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		chart = MarketChart{}
		err := source.GetJSON(ctx, c.httpClient, endpoint, header, &chart)
		if err != nil {
			c.logger.Warn("market chart request failed", zap.String("coin", coinID), zap.Error(err))
		}
		return err
	})
	if err != nil {
		return MarketChart{}, fmt.Errorf("market chart %s: %w", coinID, err)
	}
	return chart, nil
}

// DailyTable fetches coinID and returns a daily-aligned table starting at start
// with zero readings treated as missing.
func (c *Client) DailyTable(ctx context.Context, coinID, currency string, start, end time.Time) (model.Table, error) {
	chart, err := c.MarketChartRange(ctx, coinID, currency, start, end)
	if err != nil {
		return model.Table{}, err
	}
	table, err := chart.Table()
	if err != nil {
		return model.Table{}, fmt.Errorf("market chart %s: %w", coinID, err)
	}
	table, err = Normalize(table, start)
	if err != nil {
		return model.Table{}, fmt.Errorf("market chart %s: %w", coinID, err)
	}
	c.logger.Info("market chart fetched", zap.String("coin", coinID), zap.Int("rows", table.Len()))
	return table, nil
}

// Fetcher returns a source.Fetcher for one coin over a fixed window.
func (c *Client) Fetcher(coinID, currency string, start, end time.Time) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context) (model.Table, error) {
		return c.DailyTable(ctx, coinID, currency, start, end)
	})
}
