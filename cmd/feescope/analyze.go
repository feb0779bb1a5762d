package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/config"
	"feeScope/internal/fees"
	"feeScope/internal/model"
	"feeScope/internal/pipeline"
	"feeScope/internal/stats"
	"feeScope/internal/storage"
	"feeScope/internal/storage/postgres"
	"feeScope/internal/storage/workbook"
)

const (
	scenarioSheet   = "scenarios"
	aggregateSheet  = "aggregates"
	comparisonSheet = "comparison"
	summarySheet    = "summary"
	weeklyWindow    = 4
)

func runAnalyze(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadAnalyze(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := readInputs(cfg)
	if err != nil {
		return err
	}

	var store *postgres.Store
	if cfg.PGDSN != "" {
		store, err = postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
	}
	stateStore := newStateStore(cfg.StateFile, store, "analyze")
	runID := runIDOrNow(cfg.RunID)

	logger.Info("analyze start",
		zap.String("run_id", runID),
		zap.String("api_in", cfg.APIIn),
		zap.String("scraped_in", cfg.ScrapedIn),
		zap.String("gas_in", cfg.GasIn),
		zap.Strings("symbols", cfg.Symbols),
		zap.Ints("years", cfg.Years()),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)
	logPreviousRun(ctx, logger, stateStore)

	p := pipeline.New(pipeline.Config{
		Assets:          cfg.Symbols,
		WinsorizeSheets: cfg.WinsorizeSheets,
		LowerLimit:      cfg.LowerLimit,
		UpperLimit:      cfg.UpperLimit,
		Start:           cfg.Start,
		Rules:           cfg.Rules,
		Years:           cfg.Years(),
		FeeColumn:       cfg.FeeColumn,
		ValueColumn:     cfg.ValueColumn,
		VolumeColumn:    cfg.VolumeColumn,
		GasFeeColumn:    cfg.GasFeeColumn,
		GasTransfer:     cfg.Transfer,
		GasPriceAsset:   cfg.GasPriceAsset,
		Imputer:         cfg.Imputer,
		Concurrency:     cfg.Concurrency,
	}, logger)

	result, err := p.Run(ctx, in)
	if err != nil {
		return err
	}

	if err := writeAnalysis(cfg.Out, result); err != nil {
		return err
	}

	if cfg.OutJSONL != "" {
		var sink storage.Storage = storage.NewJsonlStorage(cfg.OutJSONL)
		if err := sink.PutScenarioBatch(result.Scenarios); err != nil {
			return err
		}
	}

	if store != nil {
		if err := store.UpsertScenarioRows(ctx, runID, result.Scenarios); err != nil {
			return err
		}
		if err := store.UpsertYearlyAggregates(ctx, runID, result.Aggregates); err != nil {
			return err
		}
	}
	if err := stateStore.Save(ctx, runID); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	logger.Info("analyze complete",
		zap.String("run_id", runID),
		zap.Int("assets", len(result.Assets)),
		zap.Int("scenarios", len(result.Scenarios)),
		zap.Bool("stablecoin", result.Stablecoin != nil),
	)
	return nil
}

func readInputs(cfg config.AnalyzeConfig) (pipeline.Inputs, error) {
	api, err := workbook.ReadTables(cfg.APIIn)
	if err != nil {
		return pipeline.Inputs{}, fmt.Errorf("read api workbook: %w", err)
	}
	scraped, err := workbook.ReadTables(cfg.ScrapedIn)
	if err != nil {
		return pipeline.Inputs{}, fmt.Errorf("read scraped workbook: %w", err)
	}
	in := pipeline.Inputs{API: api, Scraped: scraped}

	if cfg.GasIn != "" {
		sheets, err := workbook.Sheets(cfg.GasIn)
		if err != nil {
			return pipeline.Inputs{}, fmt.Errorf("read gas workbook: %w", err)
		}
		if !slices.Contains(sheets, cfg.GasSheet) {
			return pipeline.Inputs{}, fmt.Errorf("gas workbook %s has no sheet %q (sheets: %v)", cfg.GasIn, cfg.GasSheet, sheets)
		}
		gas, err := workbook.ReadTables(cfg.GasIn, cfg.GasSheet)
		if err != nil {
			return pipeline.Inputs{}, fmt.Errorf("read gas workbook: %w", err)
		}
		table := gas[cfg.GasSheet]
		in.Gas = &table
	}
	return in, nil
}

// writeAnalysis writes the completed asset tables, the scenario tables and a
// descriptive summary to one workbook.
func writeAnalysis(path string, result pipeline.Result) error {
	if err := workbook.WriteTables(path, result.Assets); err != nil {
		return err
	}
	if err := workbook.WriteScenarios(path, scenarioSheet, result.Scenarios); err != nil {
		return err
	}
	if err := workbook.WriteAggregates(path, aggregateSheet, result.Aggregates); err != nil {
		return err
	}

	years := map[string]model.YearTable{comparisonSheet: result.Comparison}
	if result.Stablecoin != nil {
		years[pipeline.StablecoinColumn] = *result.Stablecoin
	}
	if err := workbook.WriteYearTables(path, years); err != nil {
		return err
	}

	header, rows := summaryRecords(result.Assets)
	if err := workbook.WriteRecords(path, summarySheet, header, rows); err != nil {
		return err
	}

	weekly, err := weeklyTables(result.Assets)
	if err != nil {
		return err
	}
	return workbook.WriteTables(path, weekly)
}

func summaryRecords(assets model.Dataset) ([]string, [][]any) {
	header := []string{"asset", "column", "count", "mean", "std", "min", "q25", "median", "q75", "max", "skew", "kurtosis"}
	var rows [][]any
	for _, asset := range assets.Keys() {
		table := assets[asset]
		for _, s := range stats.Describe(table) {
			values, _ := table.Column(s.Column)
			shape := stats.Moments(values)
			rows = append(rows, []any{
				asset, s.Column, s.Count,
				s.Mean, s.Std, s.Min, s.Q25, s.Median, s.Q75, s.Max,
				shape.Skew, shape.Kurtosis,
			})
		}
	}
	return header, rows
}

// weeklyTables resamples each asset's fee percentage to weekly medians with a
// trailing four-week mean.
func weeklyTables(assets model.Dataset) (map[string]model.Table, error) {
	out := make(map[string]model.Table, len(assets))
	for _, asset := range assets.Keys() {
		values, ok := assets[asset].Column(fees.PercentageColumn)
		if !ok {
			continue
		}
		daily := model.Table{Dates: assets[asset].Dates}
		if err := daily.AddColumn(fees.PercentageColumn, values); err != nil {
			return nil, err
		}
		weekly, err := stats.ResampleWeekly(daily, stats.AggMedian)
		if err != nil {
			return nil, fmt.Errorf("resample %s: %w", asset, err)
		}
		median, _ := weekly.Column(fees.PercentageColumn)
		if err := weekly.AddColumn(fees.PercentageColumn+"_rolling", stats.RollingMean(median, weeklyWindow, 1)); err != nil {
			return nil, err
		}
		out[asset+"_weekly"] = weekly
	}
	return out, nil
}

func newStateStore(path string, store *postgres.Store, name string) pipeline.StateStore {
	if path != "" || store == nil {
		return &pipeline.FileStateStore{Path: path}
	}
	return &pipeline.DBStateStore{Store: store, Name: name}
}

func logPreviousRun(ctx context.Context, logger *zap.Logger, store pipeline.StateStore) {
	prev, ok, err := store.Load(ctx)
	if err != nil {
		logger.Warn("load state failed", zap.Error(err))
		return
	}
	if ok {
		logger.Info("previous run",
			zap.String("run_id", prev.RunID),
			zap.Time("finished_at", prev.FinishedAt),
		)
	}
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
