package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"go.uber.org/zap"

	"feeScope/internal/fees"
	"feeScope/internal/model"
	"feeScope/internal/source"
)

const (
	BaseFeeColumn = "base_fee_gwei"
	// TransactionFeesETHColumn is denominated in ETH, unlike the USD
	// transaction_fees column of the Owlracle sheet.
	TransactionFeesETHColumn = fees.GasFeeETHColumn
)

// HeaderSource is the subset of Client the gas sampler needs.
type HeaderSource interface {
	LatestBlockNumber(ctx context.Context) (uint64, error)
	HeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// GasSampler reads one base fee per day: the first block at or after
// 00:00 UTC.
type GasSampler struct {
	headers      HeaderSource
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
}

func NewGasSampler(headers HeaderSource, maxRetries int, retryBackoff time.Duration, logger *zap.Logger) *GasSampler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GasSampler{
		headers:      headers,
		maxRetries:   maxRetries,
		retryBackoff: retryBackoff,
		logger:       logger.With(zap.String("source", "eth_rpc")),
	}
}

// DailyTable samples every day in [start, end]. Days after the chain head or
// before EIP-1559 are missing. Transaction fees assume a plain 21000 gas
// transfer and are expressed in ETH; fees.GasFeesUSD converts them.
func (s *GasSampler) DailyTable(ctx context.Context, start, end time.Time) (model.Table, error) {
	if s.headers == nil {
		return model.Table{}, fmt.Errorf("header source is nil")
	}
	start, end = model.Day(start), model.Day(end)
	if end.Before(start) {
		return model.Table{}, fmt.Errorf("end must be >= start")
	}

	var latest uint64
	err := source.WithRetry(ctx, s.maxRetries, s.retryBackoff, s.logger, func(ctx context.Context) error {
		var err error
		latest, err = s.headers.LatestBlockNumber(ctx)
		return err
	})
	if err != nil {
		return model.Table{}, fmt.Errorf("get latest block: %w", err)
	}
	head, err := s.header(ctx, latest)
	if err != nil {
		return model.Table{}, err
	}

	var dates []time.Time
	var baseFees, txFees []float64
	lo := uint64(0)
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		select {
		case <-ctx.Done():
			return model.Table{}, ctx.Err()
		default:
		}

		dates = append(dates, d)
		ts := uint64(d.Unix())
		if head.Time < ts {
			baseFees = append(baseFees, model.Missing())
			txFees = append(txFees, model.Missing())
			continue
		}

		number, err := s.FirstBlockAtOrAfter(ctx, ts, lo, latest)
		if err != nil {
			return model.Table{}, err
		}
		lo = number
		header, err := s.header(ctx, number)
		if err != nil {
			return model.Table{}, err
		}
		gwei, eth := feeValues(header.BaseFee)
		baseFees = append(baseFees, gwei)
		txFees = append(txFees, eth)
	}

	table := model.NewTable(dates)
	if err := table.AddColumn(BaseFeeColumn, baseFees); err != nil {
		return model.Table{}, err
	}
	if err := table.AddColumn(TransactionFeesETHColumn, txFees); err != nil {
		return model.Table{}, err
	}
	s.logger.Info("base fees sampled", zap.Int("days", len(dates)), zap.Uint64("head", latest))
	return table, nil
}

// FirstBlockAtOrAfter binary searches [lo, hi] for the first block whose
// timestamp is >= ts. hi is returned when no earlier block qualifies.
func (s *GasSampler) FirstBlockAtOrAfter(ctx context.Context, ts, lo, hi uint64) (uint64, error) {
	for lo < hi {
		mid := lo + (hi-lo)/2
		header, err := s.header(ctx, mid)
		if err != nil {
			return 0, err
		}
		if header.Time >= ts {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo, nil
}

// Fetcher returns a source.Fetcher over a fixed window.
func (s *GasSampler) Fetcher(start, end time.Time) source.Fetcher {
	return source.FetcherFunc(func(ctx context.Context) (model.Table, error) {
		return s.DailyTable(ctx, start, end)
	})
}

func (s *GasSampler) header(ctx context.Context, number uint64) (*types.Header, error) {
	var header *types.Header
	err := source.WithRetry(ctx, s.maxRetries, s.retryBackoff, s.logger, func(ctx context.Context) error {
		var err error
		header, err = s.headers.HeaderByNumber(ctx, number)
		if err != nil {
			s.logger.Warn("header fetch failed", zap.Error(err), zap.Uint64("block_number", number))
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("header %d: %w", number, err)
	}
	return header, nil
}

func feeValues(baseFee *big.Int) (gwei, eth float64) {
	if baseFee == nil {
		return model.Missing(), model.Missing()
	}
	wei := new(big.Float).SetInt(baseFee)
	gwei, _ = new(big.Float).Quo(wei, big.NewFloat(params.GWei)).Float64()

	fee := new(big.Float).Mul(wei, new(big.Float).SetUint64(params.TxGas))
	eth, _ = fee.Quo(fee, big.NewFloat(params.Ether)).Float64()
	return gwei, eth
}
