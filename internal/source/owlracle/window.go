package owlracle

import (
	"fmt"
	"time"
)

// Window is a half-open [From, To) request range covering one calendar year.
type Window struct {
	Year int
	From time.Time
	To   time.Time
}

// YearWindows splits [start, end] into calendar-year windows running from
// Jan 1 of start's year to Jan 1 of the year after end.
func YearWindows(start, end time.Time) ([]Window, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("end must be >= start")
	}

	windows := make([]Window, 0, end.Year()-start.Year()+1)
	for year := start.Year(); year <= end.Year(); year++ {
		windows = append(windows, Window{
			Year: year,
			From: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
			To:   time.Date(year+1, time.January, 1, 0, 0, 0, 0, time.UTC),
		})
	}
	return windows, nil
}
