package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// DateColumn is the join key shared by every table.
const DateColumn = "date"

// Column is a named float series. Missing entries are NaN.
type Column struct {
	Name   string
	Values []float64
}

// Table is a date-keyed set of metric columns. Dates are UTC days.
type Table struct {
	Dates   []time.Time
	Columns []Column
}

// Missing returns the sentinel used for absent observations.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is an absent observation.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDay parses YYYY-MM-DD or YYYY/MM/DD into a UTC day.
func ParseDay(input string) (time.Time, error) {
	input = strings.TrimSpace(input)
	for _, layout := range []string{"2006-01-02", "2006/01/02"} {
		if tm, err := time.Parse(layout, input); err == nil {
			return Day(tm), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date: %q", input)
}

// NewTable builds an empty-column table over the given dates.
func NewTable(dates []time.Time) Table {
	out := make([]time.Time, len(dates))
	for i, d := range dates {
		out[i] = Day(d)
	}
	return Table{Dates: out}
}

// Len returns the number of rows.
func (t Table) Len() int {
	return len(t.Dates)
}

// Names returns the metric column names in order.
func (t Table) Names() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Column returns the values of a named column.
func (t Table) Column(name string) ([]float64, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c.Values, true
		}
	}
	return nil, false
}

// Has reports whether the table carries a column.
func (t Table) Has(name string) bool {
	_, ok := t.Column(name)
	return ok
}

// AddColumn appends a column; its length must match the row count.
func (t *Table) AddColumn(name string, values []float64) error {
	if name == "" || name == DateColumn {
		return fmt.Errorf("invalid column name %q", name)
	}
	if len(values) != len(t.Dates) {
		return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.Dates))
	}
	if t.Has(name) {
		return fmt.Errorf("duplicate column %s", name)
	}
	t.Columns = append(t.Columns, Column{Name: name, Values: values})
	return nil
}

// SetColumn replaces or appends a column.
func (t *Table) SetColumn(name string, values []float64) error {
	for i, c := range t.Columns {
		if c.Name == name {
			if len(values) != len(t.Dates) {
				return fmt.Errorf("column %s has %d values, table has %d rows", name, len(values), len(t.Dates))
			}
			t.Columns[i].Values = values
			return nil
		}
	}
	return t.AddColumn(name, values)
}

// DropColumn returns a copy of the table without the named column.
func (t Table) DropColumn(name string) Table {
	out := Table{Dates: t.Dates}
	for _, c := range t.Columns {
		if c.Name != name {
			out.Columns = append(out.Columns, c)
		}
	}
	return out
}

// Clone deep-copies dates and values.
func (t Table) Clone() Table {
	out := Table{
		Dates:   append([]time.Time(nil), t.Dates...),
		Columns: make([]Column, len(t.Columns)),
	}
	for i, c := range t.Columns {
		out.Columns[i] = Column{Name: c.Name, Values: append([]float64(nil), c.Values...)}
	}
	return out
}

// Index maps each date to its row position.
func (t Table) Index() map[time.Time]int {
	idx := make(map[time.Time]int, len(t.Dates))
	for i, d := range t.Dates {
		idx[d] = i
	}
	return idx
}

// CheckSorted returns ErrUnsortedInput unless dates strictly increase.
func (t Table) CheckSorted() error {
	for i := 1; i < len(t.Dates); i++ {
		if !t.Dates[i].After(t.Dates[i-1]) {
			return fmt.Errorf("%w: row %d (%s) follows %s", ErrUnsortedInput, i, t.Dates[i].Format("2006-01-02"), t.Dates[i-1].Format("2006-01-02"))
		}
	}
	return nil
}

// Validate checks column lengths against the row count.
func (t Table) Validate() error {
	for _, c := range t.Columns {
		if len(c.Values) != len(t.Dates) {
			return fmt.Errorf("column %s has %d values, table has %d rows", c.Name, len(c.Values), len(t.Dates))
		}
	}
	return nil
}

// Dataset is a named collection of tables (asset symbol or sheet name).
type Dataset map[string]Table

// Keys returns the dataset names in sorted order.
func (d Dataset) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone deep-copies every table.
func (d Dataset) Clone() Dataset {
	out := make(Dataset, len(d))
	for k, t := range d {
		out[k] = t.Clone()
	}
	return out
}
