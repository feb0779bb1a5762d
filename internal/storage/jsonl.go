package storage

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"feeScope/internal/model"
)

// JsonlStorage appends scenario rows to a JSONL file.
type JsonlStorage struct {
	path string
	mu   sync.Mutex
}

func NewJsonlStorage(path string) *JsonlStorage {
	return &JsonlStorage{path: path}
}

// PutScenarioBatch appends a batch of scenario rows as JSON lines.
func (s *JsonlStorage) PutScenarioBatch(rows []model.ScenarioRow) error {
	if len(rows) == 0 {
		return nil
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, row := range rows {
		line, err := json.Marshal(scenarioLine(row))
		if err != nil {
			return fmt.Errorf("marshal scenario row: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write scenario row: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}

	return nil
}

type jsonScenario struct {
	Asset          string   `json:"asset"`
	Year           int      `json:"year"`
	MeanFeePercent *float64 `json:"mean_fee_percent"`
	VolumeWeight   *float64 `json:"volume_weight"`
}

// scenarioLine encodes missing values as null; encoding/json rejects NaN.
func scenarioLine(row model.ScenarioRow) jsonScenario {
	return jsonScenario{
		Asset:          row.Asset,
		Year:           row.Year,
		MeanFeePercent: finite(row.MeanFeePercent),
		VolumeWeight:   finite(row.VolumeWeight),
	}
}

func finite(v float64) *float64 {
	if model.IsMissing(v) {
		return nil
	}
	return &v
}
