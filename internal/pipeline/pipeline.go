package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"feeScope/internal/calendar"
	"feeScope/internal/clean"
	"feeScope/internal/fees"
	"feeScope/internal/impute"
	"feeScope/internal/merge"
	"feeScope/internal/model"
)

// Column names of the comparison table.
const (
	CryptoColumn     = "crypto"
	StablecoinColumn = "stablecoin"
)

// DefaultGasPriceAsset prices ETH-denominated gas fees.
const DefaultGasPriceAsset = "eth"

// Config holds the analysis settings.
type Config struct {
	// Assets are joined from the API and scraped datasets by name.
	Assets []string
	// WinsorizeSheets are scraped sheets clipped and realigned before merging.
	// Zero limits realign without clipping.
	WinsorizeSheets []string
	LowerLimit      float64
	UpperLimit      float64
	// Start is the required left boundary of realigned sheets. Zero keeps
	// each sheet's own first date.
	Start time.Time
	Rules []merge.Rule
	Years []int

	// Empty column names are detected per asset.
	FeeColumn    string
	ValueColumn  string
	VolumeColumn string

	GasFeeColumn string
	GasTransfer  float64

	// GasPriceAsset names the API table whose prices convert ETH gas fees
	// to USD when the gas table only carries fees.GasFeeETHColumn.
	GasPriceAsset  string
	GasPriceColumn string

	Imputer     impute.Config
	Concurrency int
}

// Inputs are the raw tables a run consumes.
type Inputs struct {
	API     model.Dataset
	Scraped model.Dataset
	// Gas is the optional daily gas fee table for the stablecoin scenario.
	Gas *model.Table
}

// Result carries every table a run produces.
type Result struct {
	Assets     model.Dataset
	Scenarios  []model.ScenarioRow
	Aggregates []model.YearlyAggregate
	Stablecoin *model.YearTable
	// Comparison has one column per scenario family, indexed by year.
	Comparison model.YearTable
}

// Pipeline runs winsorize, merge, impute, fee percentage and the yearly
// scenarios over a batch of raw tables.
type Pipeline struct {
	cfg     Config
	imputer *impute.Imputer
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.GasFeeColumn == "" {
		cfg.GasFeeColumn = fees.GasFeeColumn
	}
	if cfg.GasPriceAsset == "" {
		cfg.GasPriceAsset = DefaultGasPriceAsset
	}
	if cfg.GasPriceColumn == "" {
		cfg.GasPriceColumn = fees.PriceColumn
	}
	if cfg.GasTransfer <= 0 {
		cfg.GasTransfer = fees.DefaultTransfer
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Pipeline{
		cfg:     cfg,
		imputer: impute.NewImputer(cfg.Imputer, logger),
		logger:  logger,
	}
}

// Run executes the pipeline. Per-asset stages run concurrently; the weighted
// aggregate waits for every asset.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (Result, error) {
	if len(p.cfg.Assets) == 0 {
		return Result{}, fmt.Errorf("at least one asset is required")
	}
	if len(p.cfg.Years) == 0 {
		return Result{}, fmt.Errorf("at least one year is required")
	}

	scraped, err := p.prepareScraped(in.Scraped)
	if err != nil {
		return Result{}, err
	}

	assets, err := p.runAssets(ctx, in.API, scraped)
	if err != nil {
		return Result{}, err
	}

	opts := fees.ScenarioOptions{VolumeColumn: p.cfg.VolumeColumn}
	scenarios, err := fees.ScenarioTable(assets, p.cfg.Years, opts)
	if err != nil {
		return Result{}, fmt.Errorf("scenarios: %w", err)
	}
	aggregates, err := fees.WeightedAggregate(scenarios)
	if err != nil {
		return Result{}, fmt.Errorf("weighted aggregate: %w", err)
	}

	result := Result{
		Assets:     assets,
		Scenarios:  scenarios,
		Aggregates: aggregates,
	}
	tables := []model.YearTable{fees.AggregateTable(aggregates, CryptoColumn)}

	if in.Gas != nil {
		gasTable, err := p.usdGas(*in.Gas, in.API)
		if err != nil {
			return Result{}, fmt.Errorf("stablecoin scenario: %w", err)
		}
		gas, err := fees.GasScenario(gasTable, p.cfg.Years, p.cfg.GasFeeColumn, p.cfg.GasTransfer)
		if err != nil {
			return Result{}, fmt.Errorf("stablecoin scenario: %w", err)
		}
		result.Stablecoin = &gas
		tables = append(tables, gas)
	}
	result.Comparison = combineYears(p.cfg.Years, tables...)

	p.logger.Info("pipeline complete",
		zap.Int("assets", len(assets)),
		zap.Int("scenarios", len(scenarios)),
		zap.Int("years", len(aggregates)),
	)
	return result, nil
}

// usdGas returns gas unchanged when it already carries the USD fee column.
// ETH-denominated fees are priced with the configured API price table.
func (p *Pipeline) usdGas(gas model.Table, api model.Dataset) (model.Table, error) {
	if gas.Has(p.cfg.GasFeeColumn) || !gas.Has(fees.GasFeeETHColumn) {
		return gas, nil
	}
	prices, ok := api[p.cfg.GasPriceAsset]
	if !ok {
		return model.Table{}, fmt.Errorf("gas fees are in ETH and there is no %s price table", p.cfg.GasPriceAsset)
	}
	usd, err := fees.GasFeesUSD(gas, prices, p.cfg.GasPriceColumn)
	if err != nil {
		return model.Table{}, fmt.Errorf("price gas fees: %w", err)
	}
	p.logger.Info("gas fees priced", zap.String("asset", p.cfg.GasPriceAsset), zap.Int("rows", usd.Len()))
	return usd, nil
}

// prepareScraped winsorizes and realigns the configured sheets, then applies
// the merge rules. The input dataset is not modified.
func (p *Pipeline) prepareScraped(scraped model.Dataset) (model.Dataset, error) {
	out := scraped.Clone()
	for _, name := range p.cfg.WinsorizeSheets {
		t, ok := out[name]
		if !ok {
			return nil, fmt.Errorf("winsorize: missing sheet %s", name)
		}
		clipped, err := clean.Winsorize(t, p.cfg.LowerLimit, p.cfg.UpperLimit)
		if err != nil {
			return nil, fmt.Errorf("winsorize %s: %w", name, err)
		}
		aligned, err := p.align(clipped)
		if err != nil {
			return nil, fmt.Errorf("align %s: %w", name, err)
		}
		out[name] = aligned
		p.logger.Debug("sheet winsorized", zap.String("sheet", name), zap.Int("rows", aligned.Len()))
	}

	merged, err := merge.ApplyRules(out, p.cfg.Rules)
	if err != nil {
		return nil, fmt.Errorf("merge rules: %w", err)
	}
	return merged, nil
}

func (p *Pipeline) align(t model.Table) (model.Table, error) {
	if p.cfg.Start.IsZero() {
		return calendar.Align(t, calendar.Daily)
	}
	return calendar.FillDaily(t, p.cfg.Start)
}

func (p *Pipeline) runAssets(ctx context.Context, api, scraped model.Dataset) (model.Dataset, error) {
	out := make(model.Dataset, len(p.cfg.Assets))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for _, asset := range p.cfg.Assets {
		asset := asset
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			table, err := p.runAsset(asset, api, scraped)
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset, err)
			}
			mu.Lock()
			out[asset] = table
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Pipeline) runAsset(asset string, api, scraped model.Dataset) (model.Table, error) {
	var parts []model.Table
	if t, ok := api[asset]; ok {
		parts = append(parts, t)
	}
	if t, ok := scraped[asset]; ok {
		parts = append(parts, t)
	}
	if len(parts) == 0 {
		return model.Table{}, fmt.Errorf("no source tables")
	}

	joined, err := merge.Join(parts...)
	if err != nil {
		return model.Table{}, fmt.Errorf("join: %w", err)
	}
	imputed, err := p.imputer.Impute(joined)
	if err != nil {
		return model.Table{}, fmt.Errorf("impute: %w", err)
	}

	withPct, cols, err := fees.AutoFeePercentage(imputed, fees.Columns{Fee: p.cfg.FeeColumn, Value: p.cfg.ValueColumn})
	if err != nil {
		return model.Table{}, err
	}

	p.logger.Info("asset complete",
		zap.String("asset", asset),
		zap.Int("rows", withPct.Len()),
		zap.String("fee_column", cols.Fee),
		zap.String("value_column", cols.Value),
	)
	return withPct, nil
}

// combineYears lays several year tables side by side on years. Cells for
// years a table lacks are missing.
func combineYears(years []int, tables ...model.YearTable) model.YearTable {
	out := model.YearTable{Years: append([]int(nil), years...)}
	for _, t := range tables {
		pos := make(map[int]int, len(t.Years))
		for i, y := range t.Years {
			pos[y] = i
		}
		for _, c := range t.Columns {
			values := make([]float64, len(years))
			for i, y := range years {
				if n, ok := pos[y]; ok {
					values[i] = c.Values[n]
				} else {
					values[i] = model.Missing()
				}
			}
			out.Columns = append(out.Columns, model.Column{Name: c.Name, Values: values})
		}
	}
	return out
}
