package storage

import "feeScope/internal/model"

// Storage defines a sink for scenario rows.
type Storage interface {
	PutScenarioBatch(rows []model.ScenarioRow) error
}
