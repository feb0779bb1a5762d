package fetch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"feeScope/internal/model"
	"feeScope/internal/source"
)

// Sink receives one raw table per sheet.
type Sink interface {
	WriteSheet(target, name string, table model.Table) error
}

// RunConfig holds runtime settings for the fetch runner.
type RunConfig struct {
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
}

// Runner pulls every configured source and writes it to the sink.
type Runner struct {
	cfg        RunConfig
	jobs       []source.Job
	sink       Sink
	logger     *zap.Logger
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, jobs []source.Job, sink Sink, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		cfg:        cfg,
		jobs:       jobs,
		sink:       sink,
		logger:     logger,
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}
}

// Run fetches each job in order. Sheets recorded in the checkpoint are skipped.
func (r *Runner) Run(ctx context.Context) error {
	if r.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if len(r.jobs) == 0 {
		return fmt.Errorf("at least one source is required")
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return err
	}
	completed := append([]string(nil), cp.Completed...)
	if ok {
		r.logger.Info("resume from checkpoint", zap.Int("completed", len(completed)))
	}

	written := 0
	for _, job := range r.jobs {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if cp.Done(job.Key()) {
			r.logger.Info("skip completed sheet", zap.String("target", job.Target), zap.String("sheet", job.Sheet))
			continue
		}

		r.logger.Info("fetch source", zap.String("sheet", job.Sheet))
		table, err := r.fetchWithRetry(ctx, job)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", job.Sheet, err)
		}
		if err := r.sink.WriteSheet(job.Target, job.Sheet, table); err != nil {
			return fmt.Errorf("write %s: %w", job.Sheet, err)
		}

		completed = append(completed, job.Key())
		if err := r.checkpoint.Save(completed); err != nil {
			return err
		}
		written++
		r.logger.Info("sheet complete", zap.String("sheet", job.Sheet), zap.Int("rows", table.Len()), zap.Strings("columns", table.Names()))
	}

	r.logger.Info("fetch complete", zap.Int("written", written), zap.Int("skipped", len(r.jobs)-written))
	return nil
}

func (r *Runner) fetchWithRetry(ctx context.Context, job source.Job) (model.Table, error) {
	var table model.Table
	err := source.WithRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, r.logger.With(zap.String("sheet", job.Sheet)), func(ctx context.Context) error {
		var err error
		table, err = job.Fetcher.Fetch(ctx)
		if err != nil {
			r.logger.Warn("fetch failed", zap.Error(err), zap.String("sheet", job.Sheet))
		}
		return err
	})
	return table, err
}
