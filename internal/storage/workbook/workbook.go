package workbook

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"feeScope/internal/model"
)

const defaultSheet = "Sheet1"

// YearColumn heads the first column of yearly sheets.
const YearColumn = "year"

type sheet struct {
	name   string
	header []string
	rows   [][]any
}

// Sheets lists the sheet names of the workbook at path.
func Sheets(path string) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()
	return f.GetSheetList(), nil
}

// fileExists reports whether a workbook file is present at path.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// WriteTables writes one sheet per table, replacing sheets of the same name
// and keeping every other sheet. Sheets are written in name order.
func WriteTables(path string, tables map[string]model.Table) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		sheets = append(sheets, tableSheet(name, tables[name]))
	}
	return writeSheets(path, sheets)
}

// WriteYearTables writes yearly tables with a leading year column.
func WriteYearTables(path string, tables map[string]model.YearTable) error {
	names := make([]string, 0, len(tables))
	for name := range tables {
		names = append(names, name)
	}
	sort.Strings(names)

	sheets := make([]sheet, 0, len(names))
	for _, name := range names {
		t := tables[name]
		s := sheet{name: name, header: append([]string{YearColumn}, t.Names()...)}
		for i, year := range t.Years {
			row := []any{year}
			for _, c := range t.Columns {
				row = append(row, cellValue(c.Values[i]))
			}
			s.rows = append(s.rows, row)
		}
		sheets = append(sheets, s)
	}
	return writeSheets(path, sheets)
}

// WriteScenarios writes per-asset, per-year scenario rows.
func WriteScenarios(path, name string, rows []model.ScenarioRow) error {
	s := sheet{name: name, header: []string{"asset", YearColumn, "mean_fee_percent", "volume_weight"}}
	for _, r := range rows {
		s.rows = append(s.rows, []any{r.Asset, r.Year, cellValue(r.MeanFeePercent), cellValue(r.VolumeWeight)})
	}
	return writeSheets(path, []sheet{s})
}

// WriteAggregates writes volume-weighted yearly aggregates.
func WriteAggregates(path, name string, aggs []model.YearlyAggregate) error {
	s := sheet{name: name, header: []string{YearColumn, "weighted_fee_percent", "assets", "total_weight"}}
	for _, a := range aggs {
		s.rows = append(s.rows, []any{a.Year, cellValue(a.WeightedFeePercent), a.Assets, cellValue(a.TotalWeight)})
	}
	return writeSheets(path, []sheet{s})
}

// WriteRecords writes a free-form sheet with a header row. Missing float
// cells are left empty.
func WriteRecords(path, name string, header []string, rows [][]any) error {
	s := sheet{name: name, header: header}
	for _, row := range rows {
		cells := make([]any, len(row))
		for i, v := range row {
			if f, ok := v.(float64); ok {
				cells[i] = cellValue(f)
			} else {
				cells[i] = v
			}
		}
		s.rows = append(s.rows, cells)
	}
	return writeSheets(path, []sheet{s})
}

// ReadTables reads the named sheets, or every sheet when none are named.
func ReadTables(path string, names ...string) (model.Dataset, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	if len(names) == 0 {
		names = f.GetSheetList()
	}
	out := make(model.Dataset, len(names))
	for _, name := range names {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("read sheet %s: %w", name, err)
		}
		table, err := parseTable(rows)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", name, err)
		}
		out[name] = table
	}
	return out, nil
}

// ReadRecords returns the header and data rows of a free-form sheet as raw
// cell text. Short rows are padded to the header width.
func ReadRecords(path, name string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, nil, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("sheet %s is empty", name)
	}

	header := rows[0]
	out := make([][]string, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) < len(header) {
			row = append(row, make([]string, len(header)-len(row))...)
		}
		out = append(out, row)
	}
	return header, out, nil
}

// ReadYearTable reads a sheet whose first column holds years.
func ReadYearTable(path, name string) (model.YearTable, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return model.YearTable{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.YearTable{}, fmt.Errorf("read sheet %s: %w", name, err)
	}
	if len(rows) == 0 {
		return model.YearTable{}, fmt.Errorf("sheet %s is empty", name)
	}

	header := rows[0]
	out := model.YearTable{}
	for _, col := range header[1:] {
		out.Columns = append(out.Columns, model.Column{Name: col})
	}
	for i, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		year, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return model.YearTable{}, fmt.Errorf("sheet %s row %d: invalid year %q", name, i+2, row[0])
		}
		out.Years = append(out.Years, year)
		for j := range out.Columns {
			v, err := parseCell(row, j+1)
			if err != nil {
				return model.YearTable{}, fmt.Errorf("sheet %s row %d: %w", name, i+2, err)
			}
			out.Columns[j].Values = append(out.Columns[j].Values, v)
		}
	}
	return out, nil
}

func tableSheet(name string, t model.Table) sheet {
	s := sheet{name: name, header: append([]string{model.DateColumn}, t.Names()...)}
	for i, d := range t.Dates {
		row := []any{d.Format("2006-01-02")}
		for _, c := range t.Columns {
			row = append(row, cellValue(c.Values[i]))
		}
		s.rows = append(s.rows, row)
	}
	return s
}

func parseTable(rows [][]string) (model.Table, error) {
	if len(rows) == 0 {
		return model.Table{}, errors.New("missing header row")
	}
	header := rows[0]
	if len(header) == 0 || !strings.EqualFold(strings.TrimSpace(header[0]), model.DateColumn) {
		return model.Table{}, fmt.Errorf("first column must be %q", model.DateColumn)
	}

	table := model.Table{}
	for _, col := range header[1:] {
		table.Columns = append(table.Columns, model.Column{Name: strings.TrimSpace(col)})
	}
	for i, row := range rows[1:] {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		d, err := model.ParseDay(strings.TrimSpace(row[0]))
		if err != nil {
			return model.Table{}, fmt.Errorf("row %d: %w", i+2, err)
		}
		table.Dates = append(table.Dates, d)
		for j := range table.Columns {
			v, err := parseCell(row, j+1)
			if err != nil {
				return model.Table{}, fmt.Errorf("row %d: %w", i+2, err)
			}
			table.Columns[j].Values = append(table.Columns[j].Values, v)
		}
	}
	return table, nil
}

func parseCell(row []string, idx int) (float64, error) {
	if idx >= len(row) {
		return model.Missing(), nil
	}
	raw := strings.TrimSpace(row[idx])
	if raw == "" {
		return model.Missing(), nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q", raw)
	}
	return v, nil
}

func cellValue(v float64) any {
	if model.IsMissing(v) {
		return nil
	}
	return v
}

func writeSheets(path string, sheets []sheet) error {
	if len(sheets) == 0 {
		return nil
	}

	created := !fileExists(path)
	var f *excelize.File
	if created {
		f = excelize.NewFile()
	} else {
		var err error
		f, err = excelize.OpenFile(path)
		if err != nil {
			return fmt.Errorf("open workbook: %w", err)
		}
	}
	defer f.Close()

	written := make(map[string]struct{}, len(sheets))
	for _, s := range sheets {
		if err := writeSheet(f, s); err != nil {
			return fmt.Errorf("write sheet %s: %w", s.name, err)
		}
		written[s.name] = struct{}{}
	}

	if created {
		if _, ok := written[defaultSheet]; !ok {
			if err := f.DeleteSheet(defaultSheet); err != nil {
				return fmt.Errorf("drop default sheet: %w", err)
			}
		}
	}
	f.SetActiveSheet(0)

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create workbook dir: %w", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSheet(f *excelize.File, s sheet) error {
	target := s.name
	idx, err := f.GetSheetIndex(s.name)
	if err != nil {
		return err
	}
	replacing := idx >= 0
	if replacing {
		target = scratchName(s.name)
	}
	if _, err := f.NewSheet(target); err != nil {
		return err
	}

	header := make([]any, len(s.header))
	for i, h := range s.header {
		header[i] = h
	}
	if err := f.SetSheetRow(target, "A1", &header); err != nil {
		return err
	}
	for i, row := range s.rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(target, cell, &row); err != nil {
			return err
		}
	}

	if replacing {
		if err := f.DeleteSheet(s.name); err != nil {
			return err
		}
		if err := f.SetSheetName(target, s.name); err != nil {
			return err
		}
	}
	return nil
}

// scratchName stays within the 31 character sheet name limit.
func scratchName(name string) string {
	runes := []rune(name)
	if len(runes) > 30 {
		runes = runes[:30]
	}
	return string(runes) + "~"
}

// Sink writes each sheet into the workbook file named by target.
type Sink struct{}

// WriteSheet replaces one sheet in the target workbook.
func (Sink) WriteSheet(target, name string, table model.Table) error {
	return WriteTables(target, map[string]model.Table{name: table})
}
