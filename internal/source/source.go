package source

import (
	"context"

	"feeScope/internal/model"
)

// Fetcher produces one raw daily table.
type Fetcher interface {
	Fetch(ctx context.Context) (model.Table, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (model.Table, error)

func (f FetcherFunc) Fetch(ctx context.Context) (model.Table, error) {
	return f(ctx)
}

// Job binds a fetcher to the sheet its table is written to. Target names
// the destination file.
type Job struct {
	Target  string
	Sheet   string
	Fetcher Fetcher
}

// Key identifies the job in fetch checkpoints.
func (j Job) Key() string {
	if j.Target == "" {
		return j.Sheet
	}
	return j.Target + "#" + j.Sheet
}
