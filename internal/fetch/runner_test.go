package fetch

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"feeScope/internal/model"
	"feeScope/internal/source"
)

type memorySink struct {
	sheets map[string]model.Table
	order  []string
}

func (m *memorySink) WriteSheet(_, name string, table model.Table) error {
	if m.sheets == nil {
		m.sheets = make(map[string]model.Table)
	}
	m.sheets[name] = table
	m.order = append(m.order, name)
	return nil
}

func staticJob(sheet string, calls *int) source.Job {
	return source.Job{
		Sheet: sheet,
		Fetcher: source.FetcherFunc(func(context.Context) (model.Table, error) {
			*calls++
			tbl := model.NewTable([]time.Time{time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)})
			if err := tbl.AddColumn("prices", []float64{1}); err != nil {
				return model.Table{}, err
			}
			return tbl, nil
		}),
	}
}

func TestRunnerWritesAndCheckpoints(t *testing.T) {
	cpPath := filepath.Join(t.TempDir(), "state", "fetch.json")
	cfg := RunConfig{CheckpointPath: cpPath, CheckpointEnabled: true, RetryBackoff: time.Millisecond}

	var btcCalls, ethCalls int
	sink := &memorySink{}
	jobs := []source.Job{staticJob("btc", &btcCalls), staticJob("eth", &ethCalls)}
	if err := NewRunner(cfg, jobs, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sink.order) != 2 {
		t.Fatalf("sheet count mismatch: %v", sink.order)
	}

	// a second run skips everything already written
	again := &memorySink{}
	if err := NewRunner(cfg, jobs, again, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(again.order) != 0 {
		t.Fatalf("expected no writes on resume, got %v", again.order)
	}
	if btcCalls != 1 || ethCalls != 1 {
		t.Fatalf("expected one fetch per source, got btc=%d eth=%d", btcCalls, ethCalls)
	}

	cp, ok, err := NewCheckpointStore(cpPath, true).Load()
	if err != nil || !ok {
		t.Fatalf("load checkpoint: ok=%v err=%v", ok, err)
	}
	if !cp.Done("btc") || !cp.Done("eth") || cp.Done("xrp") {
		t.Fatalf("unexpected checkpoint: %+v", cp)
	}
}

func TestRunnerRetriesFetch(t *testing.T) {
	attempts := 0
	job := source.Job{
		Sheet: "owlracle",
		Fetcher: source.FetcherFunc(func(context.Context) (model.Table, error) {
			attempts++
			if attempts < 2 {
				return model.Table{}, errors.New("temporary")
			}
			return model.Table{}, nil
		}),
	}
	sink := &memorySink{}
	cfg := RunConfig{MaxRetries: 2, RetryBackoff: time.Millisecond}
	if err := NewRunner(cfg, []source.Job{job}, sink, nil).Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attempts != 2 {
		t.Fatalf("attempts mismatch: %d != 2", attempts)
	}
}

func TestRunnerFailsWithoutJobs(t *testing.T) {
	if err := NewRunner(RunConfig{}, nil, &memorySink{}, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for empty job list")
	}
	if err := NewRunner(RunConfig{}, []source.Job{{Sheet: "x"}}, nil, nil).Run(context.Background()); err == nil {
		t.Fatalf("expected error for nil sink")
	}
}

func TestCheckpointDisabled(t *testing.T) {
	store := NewCheckpointStore(filepath.Join(t.TempDir(), "cp.json"), false)
	if err := store.Save([]string{"btc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, err := store.Load(); ok || err != nil {
		t.Fatalf("disabled store should load nothing: ok=%v err=%v", ok, err)
	}
}
