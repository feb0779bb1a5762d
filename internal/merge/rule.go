package merge

import (
	"fmt"

	"feeScope/internal/model"
)

// Derivation adds Name = Numerator / Denominator to a merged table.
type Derivation struct {
	Name          string `mapstructure:"name"`
	Numerator     string `mapstructure:"numerator"`
	Denominator   string `mapstructure:"denominator"`
	DropNumerator bool   `mapstructure:"drop_numerator"`
}

// Rule declares how an asset's table is assembled from several raw sources.
type Rule struct {
	Asset   string       `mapstructure:"asset"`
	Sources []string     `mapstructure:"sources"`
	Derive  []Derivation `mapstructure:"derive"`
}

// AverageFeeRule joins a fee-count source with a value source and derives
// average_transaction_fees from total_fees / transactions_count.
func AverageFeeRule(asset string, sources ...string) Rule {
	return Rule{
		Asset:   asset,
		Sources: sources,
		Derive: []Derivation{{
			Name:          "average_transaction_fees",
			Numerator:     "total_fees",
			Denominator:   "transactions_count",
			DropNumerator: true,
		}},
	}
}

// DefaultRules covers the assets whose fee data is split across two scrapes.
func DefaultRules() []Rule {
	return []Rule{
		AverageFeeRule("xrp", "xrp_bit", "xrp_mes"),
		AverageFeeRule("bsv", "bsv_bit", "bsv_mes"),
	}
}

// Apply joins the rule's sources from dataset and runs its derivations.
func (r Rule) Apply(dataset model.Dataset) (model.Table, error) {
	if len(r.Sources) == 0 {
		return model.Table{}, fmt.Errorf("rule %s: no sources", r.Asset)
	}
	tables := make([]model.Table, 0, len(r.Sources))
	for _, name := range r.Sources {
		t, ok := dataset[name]
		if !ok {
			return model.Table{}, fmt.Errorf("rule %s: missing source %s", r.Asset, name)
		}
		tables = append(tables, t)
	}

	out, err := Join(tables...)
	if err != nil {
		return model.Table{}, fmt.Errorf("rule %s: %w", r.Asset, err)
	}

	for _, d := range r.Derive {
		num, ok := out.Column(d.Numerator)
		if !ok {
			return model.Table{}, fmt.Errorf("rule %s: missing column %s", r.Asset, d.Numerator)
		}
		den, ok := out.Column(d.Denominator)
		if !ok {
			return model.Table{}, fmt.Errorf("rule %s: missing column %s", r.Asset, d.Denominator)
		}
		if err := out.SetColumn(d.Name, Ratio(num, den)); err != nil {
			return model.Table{}, fmt.Errorf("rule %s: %w", r.Asset, err)
		}
		if d.DropNumerator && d.Numerator != d.Name {
			out = out.DropColumn(d.Numerator)
		}
	}
	return out, nil
}

// ApplyRules returns a copy of dataset with each rule's asset table added.
// Source entries are kept.
func ApplyRules(dataset model.Dataset, rules []Rule) (model.Dataset, error) {
	out := make(model.Dataset, len(dataset)+len(rules))
	for k, v := range dataset {
		out[k] = v
	}
	for _, r := range rules {
		t, err := r.Apply(dataset)
		if err != nil {
			return nil, err
		}
		out[r.Asset] = t
	}
	return out, nil
}
