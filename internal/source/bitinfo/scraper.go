package bitinfo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"feeScope/internal/model"
	"feeScope/internal/source"
)

const DefaultBaseURL = "https://bitinfocharts.com/comparison/"

// Stat maps a chart slug such as "transactionfees-btc" to a column name.
type Stat struct {
	Slug   string `mapstructure:"slug"`
	Column string `mapstructure:"column"`
}

// Scraper builds token tables from comparison charts.
type Scraper struct {
	loader  PageLoader
	baseURL string
	logger  *zap.Logger
}

func NewScraper(loader PageLoader, baseURL string, logger *zap.Logger) *Scraper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Scraper{loader: loader, baseURL: baseURL, logger: logger.With(zap.String("source", "bitinfocharts"))}
}

// URL returns the all-time chart page for a stat slug.
func (s *Scraper) URL(slug string) string {
	full := s.baseURL + slug + ".html#alltime"
	if decoded, err := url.PathUnescape(full); err == nil {
		return decoded
	}
	return full
}

// Token scrapes every stat for one token into a single table.
func (s *Scraper) Token(ctx context.Context, stats []Stat, start, end time.Time) (model.Table, error) {
	if s.loader == nil {
		return model.Table{}, fmt.Errorf("page loader is nil")
	}
	series := make([]Series, 0, len(stats))
	for _, stat := range stats {
		select {
		case <-ctx.Done():
			return model.Table{}, ctx.Err()
		default:
		}

		html, err := s.loader.Load(ctx, s.URL(stat.Slug))
		if err != nil {
			return model.Table{}, fmt.Errorf("stat %s: %w", stat.Slug, err)
		}
		payload, err := ExtractPayload(html, start, end)
		if err != nil {
			return model.Table{}, fmt.Errorf("stat %s: %w", stat.Slug, err)
		}
		values, err := ParseValues(payload)
		if err != nil {
			return model.Table{}, fmt.Errorf("stat %s: %w", stat.Slug, err)
		}
		column := stat.Column
		if column == "" {
			column = strings.ReplaceAll(stat.Slug, "-", "_")
		}
		series = append(series, Series{Column: column, Values: values})
		s.logger.Info("stat scraped", zap.String("stat", stat.Slug), zap.Int("points", len(values)))
	}
	return BuildTable(series, start, end)
}

// Fetcher returns a source.Fetcher for one token over a fixed window.
func (s *Scraper) Fetcher(stats []Stat, start, end time.Time) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context) (model.Table, error) {
		return s.Token(ctx, stats, start, end)
	})
}
