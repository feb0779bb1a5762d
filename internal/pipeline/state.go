package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// RunState records the last completed run.
type RunState struct {
	RunID      string    `json:"run_id"`
	FinishedAt time.Time `json:"finished_at"`
}

// StateStore persists the last completed run.
type StateStore interface {
	Load(ctx context.Context) (RunState, bool, error)
	Save(ctx context.Context, runID string) error
}

// FileStateStore stores state in a local JSON file.
type FileStateStore struct {
	Path string
}

func (s *FileStateStore) Load(ctx context.Context) (RunState, bool, error) {
	if s == nil || s.Path == "" {
		return RunState{}, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunState{}, false, nil
		}
		return RunState{}, false, fmt.Errorf("read state: %w", err)
	}

	var rec RunState
	if err := json.Unmarshal(data, &rec); err != nil {
		return RunState{}, false, fmt.Errorf("parse state: %w", err)
	}
	return rec, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, runID string) error {
	if s == nil || s.Path == "" {
		return nil
	}
	dir := filepath.Dir(s.Path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir: %w", err)
		}
	}

	rec := RunState{RunID: runID, FinishedAt: time.Now().UTC()}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write state tmp: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("rename state: %w", err)
	}
	return nil
}
