package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/config"
	"feeScope/internal/forecast"
	"feeScope/internal/model"
	"feeScope/internal/storage/postgres"
	"feeScope/internal/storage/workbook"
)

func runForecast(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadForecast(cfgFile, cmd.Flags())
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

	table, err := workbook.ReadYearTable(cfg.In, cfg.Sheet)
	if err != nil {
		return err
	}

	targets := cfg.Targets
	if len(targets) == 0 {
		targets = forecast.NextYears(table, cfg.Horizon)
	}
	runID := runIDOrNow(cfg.RunID)

	logger.Info("forecast start",
		zap.String("run_id", runID),
		zap.String("in", cfg.In),
		zap.String("sheet", cfg.Sheet),
		zap.Ints("observed_years", table.Years),
		zap.Ints("targets", targets),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
	)

	projected, err := forecast.Forecast(table, targets)
	if err != nil {
		return fmt.Errorf("forecast: %w", err)
	}
	if err := workbook.WriteYearTables(cfg.Out, map[string]model.YearTable{cfg.OutSheet: projected}); err != nil {
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
		if err := store.UpsertForecasts(ctx, runID, projected); err != nil {
			return err
		}
	}
	if err := newStateStore(cfg.StateFile, store, "forecast").Save(ctx, runID); err != nil {
		return fmt.Errorf("save state: %w", err)
	}

	for _, c := range projected.Columns {
		logger.Info("forecast column",
			zap.String("column", c.Name),
			zap.Ints("years", projected.Years),
			zap.Float64s("values", c.Values),
		)
	}
	return nil
}
