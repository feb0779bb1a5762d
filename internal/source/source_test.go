package source

import (
	"context"
	"testing"

	"feeScope/internal/model"
)

func TestJobKey(t *testing.T) {
	if got := (Job{Sheet: "btc"}).Key(); got != "btc" {
		t.Fatalf("key mismatch: %q", got)
	}
	if got := (Job{Target: "data/api.xlsx", Sheet: "btc"}).Key(); got != "data/api.xlsx#btc" {
		t.Fatalf("key mismatch: %q", got)
	}
}

func TestFetcherFunc(t *testing.T) {
	called := false
	f := FetcherFunc(func(context.Context) (model.Table, error) {
		called = true
		return model.Table{}, nil
	})
	if _, err := f.Fetch(context.Background()); err != nil || !called {
		t.Fatalf("fetcher not invoked: called=%v err=%v", called, err)
	}
}
