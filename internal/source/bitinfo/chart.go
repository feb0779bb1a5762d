package bitinfo

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"feeScope/internal/model"
)

// chartDateLayout is the layout of dates embedded in the chart script.
const chartDateLayout = "2006/01/02"

var (
	pointPattern = regexp.MustCompile(`new Date\("(.+?)"\),([\d.]+|null)`)
	lastPoint    = regexp.MustCompile(`\[new Date\("[\d/]*"\)[^\]]*\]`)
)

// ExtractPayload cuts the chart data between the start date's point and the
// end date's point. When end is absent the last point on the page is used.
func ExtractPayload(html string, start, end time.Time) (string, error) {
	startMarker := fmt.Sprintf(`[new Date("%s")`, start.Format(chartDateLayout))
	from := strings.Index(html, startMarker)
	if from < 0 {
		return "", fmt.Errorf("start date %s not found in chart", start.Format(chartDateLayout))
	}

	endPattern := regexp.MustCompile(fmt.Sprintf(`\[new Date\("%s"\)[^\]]*`, regexp.QuoteMeta(end.Format(chartDateLayout))))
	if loc := endPattern.FindStringIndex(html[from:]); loc != nil {
		to := from + loc[1] + 1
		if to > len(html) {
			to = len(html)
		}
		return html[from:to], nil
	}

	all := lastPoint.FindAllStringIndex(html[from:], -1)
	if len(all) == 0 {
		return "", fmt.Errorf("no chart points after %s", start.Format(chartDateLayout))
	}
	return html[from : from+all[len(all)-1][1]], nil
}

// ParseValues extracts the value of every point in order. Null points are
// returned as missing so later values keep their day offset.
func ParseValues(payload string) ([]float64, error) {
	matches := pointPattern.FindAllStringSubmatch(payload, -1)
	values := make([]float64, 0, len(matches))
	for _, m := range matches {
		if m[2] == "null" {
			values = append(values, model.Missing())
			continue
		}
		v, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			return nil, fmt.Errorf("parse chart value %q: %w", m[2], err)
		}
		values = append(values, v)
	}
	return values, nil
}

// Series is one scraped stat ready to become a column.
type Series struct {
	Column string
	Values []float64
}

// BuildTable dates the i-th value of every series as start plus i days over
// [start, end]. Short series are padded with missing values; values past end
// are dropped.
func BuildTable(series []Series, start, end time.Time) (model.Table, error) {
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return model.Table{}, fmt.Errorf("end must be >= start")
	}

	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}

	table := model.NewTable(dates)
	for _, s := range series {
		values := make([]float64, len(dates))
		for i := range values {
			if i < len(s.Values) {
				values[i] = s.Values[i]
			} else {
				values[i] = model.Missing()
			}
		}
		if err := table.AddColumn(s.Column, values); err != nil {
			return model.Table{}, err
		}
	}
	return table, nil
}
