package fees

import (
	"fmt"

	"feeScope/internal/merge"
	"feeScope/internal/model"
)

// Column names produced or consumed by the scenario engine.
const (
	PercentageColumn = "fee_percentage"
	VolumeColumn     = "24h_volume"
	GasFeeColumn     = "transaction_fees"
	// GasFeeETHColumn holds gas fees denominated in ETH. GasScenario never
	// reads it directly; convert it with GasFeesUSD first.
	GasFeeETHColumn = "transaction_fees_eth"
	// PriceColumn is the daily USD price in market data tables.
	PriceColumn = "prices"
)

// DefaultTransfer is the remittance amount the stablecoin scenario prices.
const DefaultTransfer = 200.0

var (
	feeColumns   = []string{"median_transaction_fees", "average_transaction_fees"}
	valueColumns = []string{"median_transaction_value", "average_transaction_value"}
)

// FeeColumn picks the fee metric of a table, preferring the median series.
func FeeColumn(table model.Table) (string, bool) {
	return firstPresent(table, feeColumns)
}

// ValueColumn picks the transaction value metric, preferring the median series.
func ValueColumn(table model.Table) (string, bool) {
	return firstPresent(table, valueColumns)
}

func firstPresent(table model.Table, names []string) (string, bool) {
	for _, name := range names {
		if table.Has(name) {
			return name, true
		}
	}
	return "", false
}

// FeePercentage returns a copy of table with fee_percentage = fee / value * 100.
// Missing operands and zero values yield missing.
func FeePercentage(table model.Table, feeCol, valueCol string) (model.Table, error) {
	fee, ok := table.Column(feeCol)
	if !ok {
		return model.Table{}, fmt.Errorf("missing fee column %s", feeCol)
	}
	value, ok := table.Column(valueCol)
	if !ok {
		return model.Table{}, fmt.Errorf("missing value column %s", valueCol)
	}

	pct := merge.Ratio(fee, value)
	for i, v := range pct {
		if !model.IsMissing(v) {
			pct[i] = v * 100
		}
	}

	out := table.Clone()
	if err := out.SetColumn(PercentageColumn, pct); err != nil {
		return model.Table{}, err
	}
	return out, nil
}

// Columns names the fee and value inputs of FeePercentage.
type Columns struct {
	Fee   string
	Value string
}

// DetectColumns fills the empty names of override from the table.
func DetectColumns(table model.Table, override Columns) (Columns, error) {
	cols := override
	if cols.Fee == "" {
		var ok bool
		if cols.Fee, ok = FeeColumn(table); !ok {
			return Columns{}, fmt.Errorf("no fee column among %v", feeColumns)
		}
	}
	if cols.Value == "" {
		var ok bool
		if cols.Value, ok = ValueColumn(table); !ok {
			return Columns{}, fmt.Errorf("no value column among %v", valueColumns)
		}
	}
	return cols, nil
}

// AutoFeePercentage computes the fee percentage, detecting whichever of the
// fee and value columns override leaves empty. It returns the columns used.
func AutoFeePercentage(table model.Table, override Columns) (model.Table, Columns, error) {
	cols, err := DetectColumns(table, override)
	if err != nil {
		return model.Table{}, Columns{}, err
	}
	out, err := FeePercentage(table, cols.Fee, cols.Value)
	if err != nil {
		return model.Table{}, Columns{}, err
	}
	return out, cols, nil
}

// GasFeesUSD prices the ETH gas fee column of gas with the same-day USD price
// and returns a copy carrying GasFeeColumn. Days without a price are missing.
func GasFeesUSD(gas, prices model.Table, priceCol string) (model.Table, error) {
	if priceCol == "" {
		priceCol = PriceColumn
	}
	eth, ok := gas.Column(GasFeeETHColumn)
	if !ok {
		return model.Table{}, fmt.Errorf("missing column %s", GasFeeETHColumn)
	}
	price, ok := prices.Column(priceCol)
	if !ok {
		return model.Table{}, fmt.Errorf("missing price column %s", priceCol)
	}

	idx := prices.Index()
	usd := make([]float64, len(gas.Dates))
	for i, d := range gas.Dates {
		j, ok := idx[d]
		if !ok || model.IsMissing(eth[i]) || model.IsMissing(price[j]) {
			usd[i] = model.Missing()
			continue
		}
		usd[i] = eth[i] * price[j]
	}

	out := gas.Clone()
	if err := out.SetColumn(GasFeeColumn, usd); err != nil {
		return model.Table{}, err
	}
	return out, nil
}
