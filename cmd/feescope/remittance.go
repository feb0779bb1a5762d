package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"feeScope/internal/config"
	"feeScope/internal/model"
	"feeScope/internal/remittance"
	"feeScope/internal/storage/workbook"
)

func runRemittance(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadRemittance(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	groups := make([]remittance.Group, 0, len(cfg.Groups))
	for _, raw := range cfg.Groups {
		g, err := remittance.ParseGroup(raw)
		if err != nil {
			return err
		}
		groups = append(groups, g)
	}

	header, rows, err := workbook.ReadRecords(cfg.In, cfg.FlowsSheet)
	if err != nil {
		return err
	}
	flows, err := remittance.ParseFlows(header, rows)
	if err != nil {
		return err
	}
	header, rows, err = workbook.ReadRecords(cfg.LookupIn, cfg.LookupSheet)
	if err != nil {
		return err
	}
	lookup, err := remittance.ParseLookup(header, rows)
	if err != nil {
		return err
	}

	records := remittance.Merge(flows, lookup)
	logger.Info("remittance flows merged",
		zap.String("in", cfg.In),
		zap.Int("countries", len(flows.Rows)),
		zap.Int("matched", len(records)),
		zap.Ints("years", flows.Years),
	)
	if len(records) == 0 {
		return fmt.Errorf("no flow country codes match the lookup sheet %s", cfg.LookupSheet)
	}

	tables := make(map[string]model.YearTable, len(groups))
	for _, g := range groups {
		table, err := remittance.Pivot(records, flows.Years, g)
		if err != nil {
			return fmt.Errorf("pivot by %s: %w", g, err)
		}
		name := cfg.SheetPrefix + sheetSuffix(g)
		tables[name] = table
		logger.Info("remittance pivot", zap.String("sheet", name), zap.Strings("groups", table.Names()))
	}
	if err := workbook.WriteYearTables(cfg.Out, tables); err != nil {
		return err
	}
	logger.Info("remittance complete", zap.String("out", cfg.Out), zap.Int("sheets", len(tables)))
	return nil
}

func sheetSuffix(g remittance.Group) string {
	if g == remittance.ByIncome {
		return "income"
	}
	return "region"
}
