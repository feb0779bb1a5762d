package impute

import (
	"fmt"
	"math/rand"
	"sort"

	"go.uber.org/zap"

	"feeScope/internal/model"
)

// ChainMode selects how independent imputation chains are combined.
type ChainMode string

const (
	// ChainModeFirst keeps the first chain's completed data.
	ChainModeFirst ChainMode = "first"
	// ChainModeMean averages imputed cells across all chains.
	ChainModeMean ChainMode = "mean"
)

// ParseChainMode validates a chain mode name.
func ParseChainMode(input string) (ChainMode, error) {
	switch ChainMode(input) {
	case "", ChainModeFirst:
		return ChainModeFirst, nil
	case ChainModeMean:
		return ChainModeMean, nil
	default:
		return "", fmt.Errorf("unknown chain mode %q", input)
	}
}

// Config controls the chained imputation.
type Config struct {
	Chains int
	Passes int
	Seed   int64
	Mode   ChainMode
	// Donors is the candidate pool size for predictive mean matching.
	Donors int
	// Ridge is added to the normal equations diagonal.
	Ridge float64
}

// DefaultConfig mirrors three chains of three passes seeded with 123.
func DefaultConfig() Config {
	return Config{
		Chains: 3,
		Passes: 3,
		Seed:   123,
		Mode:   ChainModeFirst,
		Donors: 5,
		Ridge:  1e-6,
	}
}

// Imputer fills missing cells by modelling each incomplete column on the
// others, one column at a time, for a fixed number of passes.
type Imputer struct {
	cfg    Config
	logger *zap.Logger
}

func NewImputer(cfg Config, logger *zap.Logger) *Imputer {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.Chains <= 0 {
		cfg.Chains = def.Chains
	}
	if cfg.Passes <= 0 {
		cfg.Passes = def.Passes
	}
	if cfg.Mode == "" {
		cfg.Mode = def.Mode
	}
	if cfg.Donors <= 0 {
		cfg.Donors = def.Donors
	}
	if cfg.Ridge <= 0 {
		cfg.Ridge = def.Ridge
	}
	return &Imputer{cfg: cfg, logger: logger}
}

// Config returns the effective configuration.
func (im *Imputer) Config() Config {
	return im.cfg
}

// Impute returns a completed copy of table. The date column is never touched.
// A column with no observed values yields ErrImputation.
func (im *Imputer) Impute(table model.Table) (model.Table, error) {
	if err := table.Validate(); err != nil {
		return model.Table{}, err
	}
	out := table.Clone()
	if table.Len() == 0 {
		return out, nil
	}

	masks := make([][]bool, len(table.Columns))
	var incomplete []int
	for j, c := range table.Columns {
		mask, missing := missingMask(c.Values)
		masks[j] = mask
		if missing == 0 {
			continue
		}
		if missing == len(c.Values) {
			return model.Table{}, fmt.Errorf("%w: column %s is entirely missing", model.ErrImputation, c.Name)
		}
		incomplete = append(incomplete, j)
	}
	if len(incomplete) == 0 {
		return out, nil
	}

	// least-missing columns are visited first
	sort.SliceStable(incomplete, func(a, b int) bool {
		return countTrue(masks[incomplete[a]]) < countTrue(masks[incomplete[b]])
	})

	chains := make([][][]float64, im.cfg.Chains)
	for c := 0; c < im.cfg.Chains; c++ {
		rng := rand.New(rand.NewSource(im.cfg.Seed + int64(c)))
		chains[c] = im.runChain(table, masks, incomplete, rng)
	}

	combined := chains[0]
	if im.cfg.Mode == ChainModeMean && len(chains) > 1 {
		combined = meanChains(chains, masks)
	}
	for j := range out.Columns {
		out.Columns[j].Values = combined[j]
	}

	im.logger.Debug("impute complete",
		zap.Int("rows", table.Len()),
		zap.Int("incomplete_columns", len(incomplete)),
		zap.Int("chains", im.cfg.Chains),
		zap.Int("passes", im.cfg.Passes),
		zap.String("mode", string(im.cfg.Mode)),
	)
	return out, nil
}

func (im *Imputer) runChain(table model.Table, masks [][]bool, incomplete []int, rng *rand.Rand) [][]float64 {
	data := make([][]float64, len(table.Columns))
	for j, c := range table.Columns {
		data[j] = append([]float64(nil), c.Values...)
	}

	for _, j := range incomplete {
		observed := observedValues(data[j], masks[j])
		for i, miss := range masks[j] {
			if miss {
				data[j][i] = observed[rng.Intn(len(observed))]
			}
		}
	}

	for pass := 0; pass < im.cfg.Passes; pass++ {
		for _, j := range incomplete {
			im.imputeColumn(data, masks, j, rng)
		}
	}
	return data
}

// imputeColumn refits column j on every other column and redraws its
// missing cells from observed donors with the closest predictions.
func (im *Imputer) imputeColumn(data [][]float64, masks [][]bool, j int, rng *rand.Rand) {
	predictors := make([][]float64, 0, len(data)-1)
	for k := range data {
		if k != j {
			predictors = append(predictors, data[k])
		}
	}

	mask := masks[j]
	obsRows := make([]int, 0, len(mask))
	misRows := make([]int, 0)
	for i, miss := range mask {
		if miss {
			misRows = append(misRows, i)
		} else {
			obsRows = append(obsRows, i)
		}
	}

	fit := fitLinear(predictors, data[j], obsRows, im.cfg.Ridge)

	donors := make([]donor, len(obsRows))
	for n, i := range obsRows {
		donors[n] = donor{pred: fit.predict(i), value: data[j][i]}
	}
	sort.SliceStable(donors, func(a, b int) bool { return donors[a].pred < donors[b].pred })

	for _, i := range misRows {
		data[j][i] = matchDonor(donors, fit.predict(i), im.cfg.Donors, rng)
	}
}

func missingMask(values []float64) ([]bool, int) {
	mask := make([]bool, len(values))
	count := 0
	for i, v := range values {
		if model.IsMissing(v) {
			mask[i] = true
			count++
		}
	}
	return mask, count
}

func observedValues(values []float64, mask []bool) []float64 {
	out := make([]float64, 0, len(values))
	for i, v := range values {
		if !mask[i] {
			out = append(out, v)
		}
	}
	return out
}

func countTrue(mask []bool) int {
	n := 0
	for _, m := range mask {
		if m {
			n++
		}
	}
	return n
}

func meanChains(chains [][][]float64, masks [][]bool) [][]float64 {
	out := make([][]float64, len(chains[0]))
	for j := range chains[0] {
		out[j] = append([]float64(nil), chains[0][j]...)
		for i, miss := range masks[j] {
			if !miss {
				continue
			}
			var sum float64
			for _, chain := range chains {
				sum += chain[j][i]
			}
			out[j][i] = sum / float64(len(chains))
		}
	}
	return out
}
