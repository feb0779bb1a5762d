package main

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/spf13/cobra"

	"feeScope/internal/model"
	"feeScope/internal/storage/workbook"
)

func TestRunRemittance(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "remittance.xlsx")
	out := filepath.Join(dir, "analysis.xlsx")

	if err := workbook.WriteRecords(in, "flows",
		[]string{"Country Name", "Country Code", "2019 [YR2019]", "2020 [YR2020]"},
		[][]any{
			{"Mexico", "MEX", 36000.0, 40000.0},
			{"Philippines", "PHL", 35000.0, ".."},
		},
	); err != nil {
		t.Fatalf("write flows: %v", err)
	}
	if err := workbook.WriteRecords(in, "lookup",
		[]string{"Country Code", "Region", "Income"},
		[][]any{
			{"MEX", "Latin America & Caribbean", "Upper middle income"},
			{"PHL", "East Asia & Pacific", "Lower middle income"},
		},
	); err != nil {
		t.Fatalf("write lookup: %v", err)
	}

	cmd := &cobra.Command{RunE: runRemittance}
	cmd.Flags().String("config", "", "")
	cmd.Flags().String("in", "", "")
	cmd.Flags().String("out", "", "")
	cmd.Flags().StringSlice("groups", nil, "")
	if err := cmd.Flags().Parse([]string{"--in=" + in, "--out=" + out, "--groups=region"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}
	if err := runRemittance(cmd, nil); err != nil {
		t.Fatalf("run remittance: %v", err)
	}

	table, err := workbook.ReadYearTable(out, "remittance_region")
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if !reflect.DeepEqual(table.Years, []int{2019, 2020}) {
		t.Fatalf("years mismatch: %v", table.Years)
	}
	if !reflect.DeepEqual(table.Names(), []string{"East Asia & Pacific", "Latin America & Caribbean"}) {
		t.Fatalf("groups mismatch: %v", table.Names())
	}
	eap, _ := table.Column("East Asia & Pacific")
	if eap[0] != 35000 || !model.IsMissing(eap[1]) {
		t.Fatalf("unexpected East Asia values: %v", eap)
	}
	if sheets, _ := workbook.Sheets(out); len(sheets) != 1 {
		t.Fatalf("expected only the region sheet, got %v", sheets)
	}
}
