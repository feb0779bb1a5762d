// Package remittance summarizes country-level remittance flows by region and
// income group so they can be compared with crypto fee trends.
package remittance

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"feeScope/internal/model"
)

const (
	CountryCodeColumn = "Country Code"
	RegionColumn      = "Region"
	IncomeColumn      = "Income"
)

// Group selects the lookup attribute flows are averaged by.
type Group string

const (
	ByRegion Group = RegionColumn
	ByIncome Group = IncomeColumn
)

// ParseGroup accepts "region" or "income" in any case.
func ParseGroup(s string) (Group, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region":
		return ByRegion, nil
	case "income":
		return ByIncome, nil
	}
	return "", fmt.Errorf("unknown remittance group %q (want region or income)", s)
}

// Flows holds one row per country with a value per year.
type Flows struct {
	Years []int
	Rows  []Flow
}

// Flow is the yearly remittance series of one country.
type Flow struct {
	Country string
	Values  []float64
}

// Country carries the lookup attributes of one country code.
type Country struct {
	Region string
	Income string
}

// Lookup maps country codes to their attributes.
type Lookup map[string]Country

// Record is a flow joined with its lookup attributes.
type Record struct {
	Country string
	Region  string
	Income  string
	Values  []float64
}

func (r Record) group(g Group) string {
	if g == ByIncome {
		return r.Income
	}
	return r.Region
}

// ParseFlows reads a flows sheet. Columns whose header starts with a year,
// such as "2019" or "2019 [YR2019]", are kept; other columns are ignored.
// Empty cells and ".." are missing.
func ParseFlows(header []string, rows [][]string) (Flows, error) {
	code := indexOf(header, CountryCodeColumn)
	if code < 0 {
		return Flows{}, fmt.Errorf("flows: missing column %q", CountryCodeColumn)
	}

	var out Flows
	var yearIdx []int
	for i, h := range header {
		if i == code {
			continue
		}
		if y, ok := headerYear(h); ok {
			out.Years = append(out.Years, y)
			yearIdx = append(yearIdx, i)
		}
	}
	if len(yearIdx) == 0 {
		return Flows{}, fmt.Errorf("flows: no year columns")
	}

	for n, row := range rows {
		country := strings.TrimSpace(cell(row, code))
		if country == "" {
			continue
		}
		values := make([]float64, len(yearIdx))
		for j, idx := range yearIdx {
			v, err := parseValue(cell(row, idx))
			if err != nil {
				return Flows{}, fmt.Errorf("flows row %d column %q: %w", n+2, header[idx], err)
			}
			values[j] = v
		}
		out.Rows = append(out.Rows, Flow{Country: country, Values: values})
	}
	return out, nil
}

// ParseLookup reads the country code, region and income columns of a lookup
// sheet. A repeated country code keeps its first row.
func ParseLookup(header []string, rows [][]string) (Lookup, error) {
	idx := make(map[string]int, 3)
	for _, name := range []string{CountryCodeColumn, RegionColumn, IncomeColumn} {
		i := indexOf(header, name)
		if i < 0 {
			return nil, fmt.Errorf("lookup: missing column %q", name)
		}
		idx[name] = i
	}

	out := make(Lookup, len(rows))
	for _, row := range rows {
		code := strings.TrimSpace(cell(row, idx[CountryCodeColumn]))
		if code == "" {
			continue
		}
		if _, ok := out[code]; ok {
			continue
		}
		out[code] = Country{
			Region: strings.TrimSpace(cell(row, idx[RegionColumn])),
			Income: strings.TrimSpace(cell(row, idx[IncomeColumn])),
		}
	}
	return out, nil
}

// Merge joins flows with the lookup on country code. Countries absent from
// the lookup are dropped.
func Merge(flows Flows, lookup Lookup) []Record {
	out := make([]Record, 0, len(flows.Rows))
	for _, f := range flows.Rows {
		c, ok := lookup[f.Country]
		if !ok {
			continue
		}
		out = append(out, Record{Country: f.Country, Region: c.Region, Income: c.Income, Values: f.Values})
	}
	return out
}

// Pivot averages the merged flows per group and year. Columns are the group
// names in sorted order; records without a group are skipped. A group with no
// observed value in a year is missing there.
func Pivot(records []Record, years []int, g Group) (model.YearTable, error) {
	if g != ByRegion && g != ByIncome {
		return model.YearTable{}, fmt.Errorf("unknown remittance group %q", g)
	}

	type sums struct {
		total []float64
		count []int
	}
	byGroup := make(map[string]*sums)
	for _, r := range records {
		if len(r.Values) != len(years) {
			return model.YearTable{}, fmt.Errorf("country %s has %d values, want %d", r.Country, len(r.Values), len(years))
		}
		name := r.group(g)
		if name == "" {
			continue
		}
		s := byGroup[name]
		if s == nil {
			s = &sums{total: make([]float64, len(years)), count: make([]int, len(years))}
			byGroup[name] = s
		}
		for i, v := range r.Values {
			if model.IsMissing(v) {
				continue
			}
			s.total[i] += v
			s.count[i]++
		}
	}
	if len(byGroup) == 0 {
		return model.YearTable{}, fmt.Errorf("%w: no %s groups to average", model.ErrUndefinedAggregate, strings.ToLower(string(g)))
	}

	names := make([]string, 0, len(byGroup))
	for name := range byGroup {
		names = append(names, name)
	}
	sort.Strings(names)

	out := model.YearTable{Years: append([]int(nil), years...)}
	for _, name := range names {
		s := byGroup[name]
		values := make([]float64, len(years))
		for i := range years {
			if s.count[i] == 0 {
				values[i] = model.Missing()
				continue
			}
			values[i] = s.total[i] / float64(s.count[i])
		}
		out.Columns = append(out.Columns, model.Column{Name: name, Values: values})
	}
	return out, nil
}

func headerYear(h string) (int, bool) {
	fields := strings.Fields(h)
	if len(fields) == 0 {
		return 0, false
	}
	first := fields[0]
	if f, err := strconv.ParseFloat(first, 64); err == nil && f == math.Trunc(f) {
		first = strconv.Itoa(int(f))
	}
	y, err := strconv.Atoi(first)
	if err != nil || y < 1000 || y > 9999 {
		return 0, false
	}
	return y, true
}

func parseValue(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == ".." || strings.EqualFold(s, "nan") {
		return model.Missing(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", s)
	}
	return v, nil
}

func indexOf(header []string, name string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
