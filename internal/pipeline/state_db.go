package pipeline

import (
	"context"

	"feeScope/internal/storage/postgres"
)

// DBStateStore stores state in the pipeline_state table.
type DBStateStore struct {
	Store *postgres.Store
	Name  string
}

func (s *DBStateStore) Load(ctx context.Context) (RunState, bool, error) {
	if s == nil || s.Store == nil {
		return RunState{}, false, nil
	}
	runID, finishedAt, ok, err := s.Store.LoadState(ctx, s.Name)
	if err != nil || !ok {
		return RunState{}, ok, err
	}
	return RunState{RunID: runID, FinishedAt: finishedAt}, true, nil
}

func (s *DBStateStore) Save(ctx context.Context, runID string) error {
	if s == nil || s.Store == nil {
		return nil
	}
	return s.Store.SaveState(ctx, s.Name, runID)
}
