package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"feeScope/internal/model"
)

//go:embed schema.sql
var schema string

// Store provides Postgres persistence for analysis results.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the result tables when they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// UpsertScenarioRows inserts or updates per-asset yearly scenarios.
func (s *Store) UpsertScenarioRows(ctx context.Context, runID string, rows []model.ScenarioRow) error {
	if len(rows) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, r := range rows {
		batch.Queue(`
			INSERT INTO fee_scenarios (
				run_id, asset, year, mean_fee_percent, volume_weight, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (run_id, asset, year)
			DO UPDATE SET
				mean_fee_percent = EXCLUDED.mean_fee_percent,
				volume_weight = EXCLUDED.volume_weight,
				updated_at = now()
		`,
			runID,
			r.Asset,
			r.Year,
			nullable(r.MeanFeePercent),
			nullable(r.VolumeWeight),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertYearlyAggregates inserts or updates the volume-weighted aggregates.
func (s *Store) UpsertYearlyAggregates(ctx context.Context, runID string, aggs []model.YearlyAggregate) error {
	if len(aggs) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, a := range aggs {
		batch.Queue(`
			INSERT INTO fee_yearly_aggregates (
				run_id, year, weighted_fee_percent, assets, total_weight, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, now(), now())
			ON CONFLICT (run_id, year)
			DO UPDATE SET
				weighted_fee_percent = EXCLUDED.weighted_fee_percent,
				assets = EXCLUDED.assets,
				total_weight = EXCLUDED.total_weight,
				updated_at = now()
		`,
			runID,
			a.Year,
			nullable(a.WeightedFeePercent),
			a.Assets,
			nullable(a.TotalWeight),
		)
	}
	return s.sendBatch(ctx, batch)
}

// UpsertForecasts stores one row per series and target year.
func (s *Store) UpsertForecasts(ctx context.Context, runID string, table model.YearTable) error {
	batch := &pgx.Batch{}
	for _, c := range table.Columns {
		for i, year := range table.Years {
			batch.Queue(`
				INSERT INTO fee_forecasts (
					run_id, series, year, value, created_at, updated_at
				) VALUES ($1, $2, $3, $4, now(), now())
				ON CONFLICT (run_id, series, year)
				DO UPDATE SET
					value = EXCLUDED.value,
					updated_at = now()
			`,
				runID,
				c.Name,
				year,
				nullable(c.Values[i]),
			)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return s.sendBatch(ctx, batch)
}

// LoadState returns the last completed run for a pipeline name.
func (s *Store) LoadState(ctx context.Context, name string) (string, time.Time, bool, error) {
	if name == "" {
		return "", time.Time{}, false, fmt.Errorf("state name required")
	}
	var runID string
	var finishedAt time.Time
	row := s.pool.QueryRow(ctx, `SELECT last_run_id, finished_at FROM pipeline_state WHERE name=$1`, name)
	if err := row.Scan(&runID, &finishedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", time.Time{}, false, nil
		}
		return "", time.Time{}, false, err
	}
	return runID, finishedAt, true, nil
}

// SaveState upserts the last completed run for a pipeline name.
func (s *Store) SaveState(ctx context.Context, name, runID string) error {
	if name == "" {
		return fmt.Errorf("state name required")
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO pipeline_state (name, last_run_id, finished_at, updated_at)
		VALUES ($1, $2, now(), now())
		ON CONFLICT (name) DO UPDATE
		SET last_run_id = EXCLUDED.last_run_id, finished_at = now(), updated_at = now()
	`, name, runID)
	return err
}

func (s *Store) sendBatch(ctx context.Context, batch *pgx.Batch) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < batch.Len(); i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// nullable maps missing values to SQL NULL.
func nullable(v float64) *float64 {
	if model.IsMissing(v) {
		return nil
	}
	return &v
}
