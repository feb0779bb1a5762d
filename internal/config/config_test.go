package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"feeScope/internal/impute"
)

const sampleConfig = `
start: "2019-01-01"
end: "2022/12/31"
assets:
  btc: bitcoin
  xrp: ripple
scrape:
  btc:
    - slug: transactionfees-btc
      column: average_transaction_fees
    - slug: transactions-btc
rules:
  - asset: xrp
    sources: [xrp_bit, xrp_mes]
    derive:
      - name: average_transaction_fees
        numerator: total_fees
        denominator: transactions_count
        drop_numerator: true
chain-mode: mean
years: [2023, 2024]
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feescope.yaml")
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadFetch(t *testing.T) {
	t.Setenv("FEESCOPE_OWLRACLE_KEY", "secret")

	cfg, err := LoadFetch(writeConfig(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !cfg.Start.Equal(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("start mismatch: %s", cfg.Start)
	}
	if !cfg.End.Equal(time.Date(2022, 12, 31, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("end mismatch: %s", cfg.End)
	}
	if cfg.OwlracleKey != "secret" {
		t.Fatalf("env override not applied: %q", cfg.OwlracleKey)
	}
	if got := cfg.AssetSymbols(); !reflect.DeepEqual(got, []string{"btc", "xrp"}) {
		t.Fatalf("symbols mismatch: %v", got)
	}
	if cfg.Assets["xrp"] != "ripple" {
		t.Fatalf("asset id mismatch: %v", cfg.Assets)
	}
	stats := cfg.Scrape["btc"]
	if len(stats) != 2 || stats[0].Column != "average_transaction_fees" || stats[1].Slug != "transactions-btc" {
		t.Fatalf("scrape stats mismatch: %+v", stats)
	}
	if !cfg.HasSource("CoinGecko") || cfg.HasSource("eth-rpc") {
		t.Fatalf("unexpected sources: %v", cfg.Sources)
	}
	if cfg.CoinGeckoInterval != 3*time.Second {
		t.Fatalf("interval mismatch: %s", cfg.CoinGeckoInterval)
	}
}

func TestLoadFetchRequiresDates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("currency: usd\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := LoadFetch(path, nil); err == nil {
		t.Fatalf("expected error for missing dates")
	}
}

func TestLoadAnalyze(t *testing.T) {
	flags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	flags.Int("to-year", 2022, "")
	if err := flags.Parse([]string{"--to-year=2021"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadAnalyze(writeConfig(t), flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(cfg.Years(), []int{2019, 2020, 2021}) {
		t.Fatalf("years mismatch: %v", cfg.Years())
	}
	if !reflect.DeepEqual(cfg.Symbols, []string{"btc", "xrp"}) {
		t.Fatalf("symbols mismatch: %v", cfg.Symbols)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Asset != "xrp" || !cfg.Rules[0].Derive[0].DropNumerator {
		t.Fatalf("rules mismatch: %+v", cfg.Rules)
	}
	if cfg.Imputer.Mode != impute.ChainModeMean || cfg.Imputer.Seed != 123 || cfg.Imputer.Chains != 3 {
		t.Fatalf("imputer mismatch: %+v", cfg.Imputer)
	}
	if !reflect.DeepEqual(cfg.WinsorizeSheets, []string{"xrp_mes", "bsv_mes", "xlm"}) {
		t.Fatalf("winsorize sheets mismatch: %v", cfg.WinsorizeSheets)
	}
	if cfg.LowerLimit != 0.05 || cfg.Transfer != 200 || cfg.VolumeColumn != "24h_volume" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestLoadAnalyzeKeepsZeroLimits(t *testing.T) {
	flags := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
	flags.Float64("winsorize-lower", 0.05, "")
	flags.Float64("winsorize-upper", 0.05, "")
	if err := flags.Parse([]string{"--winsorize-lower=0", "--winsorize-upper=0"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadAnalyze(writeConfig(t), flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LowerLimit != 0 || cfg.UpperLimit != 0 {
		t.Fatalf("explicit zero limits replaced: (%v, %v)", cfg.LowerLimit, cfg.UpperLimit)
	}
	if cfg.GasPriceAsset != "eth" {
		t.Fatalf("gas price asset mismatch: %s", cfg.GasPriceAsset)
	}
}

func TestLoadForecast(t *testing.T) {
	cfg, err := LoadForecast(writeConfig(t), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(cfg.Targets, []int{2023, 2024}) {
		t.Fatalf("targets mismatch: %v", cfg.Targets)
	}
	if cfg.Out != cfg.In || cfg.Sheet != "comparison" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}

func TestGetStringSlice(t *testing.T) {
	v := viper.New()
	v.Set("csv", " btc, ,eth ")
	v.Set("list", []interface{}{"xrp", " xlm "})

	if got := getStringSlice(v, "csv"); !reflect.DeepEqual(got, []string{"btc", "eth"}) {
		t.Fatalf("csv mismatch: %v", got)
	}
	if got := getStringSlice(v, "list"); !reflect.DeepEqual(got, []string{"xrp", "xlm"}) {
		t.Fatalf("list mismatch: %v", got)
	}
	if got := getStringSlice(v, "missing"); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}

func TestGetIntSlice(t *testing.T) {
	got, err := getIntSlice("2021, 2022")
	if err != nil || !reflect.DeepEqual(got, []int{2021, 2022}) {
		t.Fatalf("unexpected result: %v %v", got, err)
	}
	if _, err := getIntSlice("20x1"); err == nil {
		t.Fatalf("expected error for invalid year")
	}
}

func TestLoadRemittance(t *testing.T) {
	flags := pflag.NewFlagSet("remittance", pflag.ContinueOnError)
	flags.String("in", "", "")
	flags.StringSlice("groups", nil, "")
	if err := flags.Parse([]string{"--in=flows.xlsx", "--groups=income"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := LoadRemittance(writeConfig(t), flags)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.In != "flows.xlsx" || cfg.LookupIn != "flows.xlsx" {
		t.Fatalf("input mismatch: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.Groups, []string{"income"}) {
		t.Fatalf("groups mismatch: %v", cfg.Groups)
	}
	if cfg.FlowsSheet != "flows" || cfg.LookupSheet != "lookup" || cfg.SheetPrefix != "remittance_" {
		t.Fatalf("defaults mismatch: %+v", cfg)
	}
}
