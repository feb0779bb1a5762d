package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"feeScope/internal/clean"
	"feeScope/internal/fees"
	"feeScope/internal/impute"
	"feeScope/internal/merge"
	"feeScope/internal/model"
)

// AnalyzeConfig holds configuration for the analyze command.
type AnalyzeConfig struct {
	APIIn     string
	ScrapedIn string
	GasIn     string
	GasSheet  string

	Symbols         []string
	WinsorizeSheets []string
	LowerLimit      float64
	UpperLimit      float64
	Start           time.Time
	Rules           []merge.Rule
	FromYear        int
	ToYear          int

	FeeColumn    string
	ValueColumn  string
	VolumeColumn string
	GasFeeColumn string
	Transfer     float64

	// GasPriceAsset is the API sheet whose prices convert ETH gas fees.
	GasPriceAsset string

	Imputer     impute.Config
	Concurrency int

	Out       string
	OutJSONL  string
	PGDSN     string
	RunID     string
	StateFile string
	LogLevel  string
}

// LoadAnalyze merges .env, config file, environment variables, and flags into AnalyzeConfig.
func LoadAnalyze(cfgFile string, flags *pflag.FlagSet) (AnalyzeConfig, error) {
	def := impute.DefaultConfig()
	v, err := load(cfgFile, flags, map[string]any{
		"api-in":          "./data/api.xlsx",
		"scraped-in":      "./data/scraped.xlsx",
		"gas-sheet":       "gas",
		"winsorize":       []string{"xrp_mes", "bsv_mes", "xlm"},
		"winsorize-lower": clean.DefaultLimit,
		"winsorize-upper": clean.DefaultLimit,
		"from-year":       2019,
		"to-year":         2022,
		"volume-column":   fees.VolumeColumn,
		"gas-fee-column":  fees.GasFeeColumn,
		"transfer":        fees.DefaultTransfer,
		"gas-price-asset": "eth",
		"chains":          def.Chains,
		"passes":          def.Passes,
		"seed":            def.Seed,
		"chain-mode":      string(def.Mode),
		"donors":          def.Donors,
		"concurrency":     4,
		"out":             "./data/analysis.xlsx",
		"log-level":       "info",
	})
	if err != nil {
		return AnalyzeConfig{}, err
	}

	mode, err := impute.ParseChainMode(v.GetString("chain-mode"))
	if err != nil {
		return AnalyzeConfig{}, err
	}

	rules := merge.DefaultRules()
	if v.IsSet("rules") {
		rules = nil
		if err := v.UnmarshalKey("rules", &rules); err != nil {
			return AnalyzeConfig{}, fmt.Errorf("parse rules: %w", err)
		}
	}

	symbols := getStringSlice(v, "symbols")
	if len(symbols) == 0 {
		symbols = sortedKeys(v.GetStringMapString("assets"))
	}

	var start time.Time
	if raw := v.GetString("start"); raw != "" {
		start, err = model.ParseDay(raw)
		if err != nil {
			return AnalyzeConfig{}, fmt.Errorf("start: %w", err)
		}
	}

	cfg := AnalyzeConfig{
		APIIn:           v.GetString("api-in"),
		ScrapedIn:       v.GetString("scraped-in"),
		GasIn:           v.GetString("gas-in"),
		GasSheet:        v.GetString("gas-sheet"),
		Symbols:         symbols,
		WinsorizeSheets: getStringSlice(v, "winsorize"),
		LowerLimit:      v.GetFloat64("winsorize-lower"),
		UpperLimit:      v.GetFloat64("winsorize-upper"),
		Start:           start,
		Rules:           rules,
		FromYear:        v.GetInt("from-year"),
		ToYear:          v.GetInt("to-year"),
		FeeColumn:       v.GetString("fee-column"),
		ValueColumn:     v.GetString("value-column"),
		VolumeColumn:    v.GetString("volume-column"),
		GasFeeColumn:    v.GetString("gas-fee-column"),
		Transfer:        v.GetFloat64("transfer"),
		GasPriceAsset:   v.GetString("gas-price-asset"),
		Imputer: impute.Config{
			Chains: v.GetInt("chains"),
			Passes: v.GetInt("passes"),
			Seed:   v.GetInt64("seed"),
			Mode:   mode,
			Donors: v.GetInt("donors"),
			Ridge:  def.Ridge,
		},
		Concurrency: v.GetInt("concurrency"),
		Out:         v.GetString("out"),
		OutJSONL:    v.GetString("out-jsonl"),
		PGDSN:       v.GetString("pg-dsn"),
		RunID:       v.GetString("run-id"),
		StateFile:   v.GetString("state-file"),
		LogLevel:    v.GetString("log-level"),
	}

	if cfg.FromYear > cfg.ToYear {
		return AnalyzeConfig{}, fmt.Errorf("from-year %d is after to-year %d", cfg.FromYear, cfg.ToYear)
	}
	if len(cfg.Symbols) == 0 {
		return AnalyzeConfig{}, fmt.Errorf("at least one symbol is required")
	}

	return cfg, nil
}

// Years returns the analysis window.
func (c AnalyzeConfig) Years() []int {
	return fees.Years(c.FromYear, c.ToYear)
}

// ForecastConfig holds configuration for the forecast command.
type ForecastConfig struct {
	In        string
	Sheet     string
	Out       string
	OutSheet  string
	Targets   []int
	Horizon   int
	PGDSN     string
	RunID     string
	StateFile string
	LogLevel  string
}

// LoadForecast merges .env, config file, environment variables, and flags into ForecastConfig.
func LoadForecast(cfgFile string, flags *pflag.FlagSet) (ForecastConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"in":        "./data/analysis.xlsx",
		"sheet":     "comparison",
		"out-sheet": "forecast",
		"horizon":   2,
		"log-level": "info",
	})
	if err != nil {
		return ForecastConfig{}, err
	}

	targets, err := getIntSlice(v.Get("years"))
	if err != nil {
		return ForecastConfig{}, fmt.Errorf("years: %w", err)
	}

	cfg := ForecastConfig{
		In:        v.GetString("in"),
		Sheet:     v.GetString("sheet"),
		Out:       v.GetString("out"),
		OutSheet:  v.GetString("out-sheet"),
		Targets:   targets,
		Horizon:   v.GetInt("horizon"),
		PGDSN:     v.GetString("pg-dsn"),
		RunID:     v.GetString("run-id"),
		StateFile: v.GetString("state-file"),
		LogLevel:  v.GetString("log-level"),
	}
	if cfg.Out == "" {
		cfg.Out = cfg.In
	}
	if len(cfg.Targets) == 0 && cfg.Horizon <= 0 {
		return ForecastConfig{}, fmt.Errorf("either target years or a positive horizon is required")
	}

	return cfg, nil
}

// RemittanceConfig holds configuration for the remittance command.
type RemittanceConfig struct {
	In          string
	FlowsSheet  string
	LookupIn    string
	LookupSheet string
	Groups      []string
	Out         string
	SheetPrefix string
	LogLevel    string
}

// LoadRemittance merges .env, config file, environment variables, and flags into RemittanceConfig.
func LoadRemittance(cfgFile string, flags *pflag.FlagSet) (RemittanceConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"in":           "./data/remittance.xlsx",
		"flows-sheet":  "flows",
		"lookup-sheet": "lookup",
		"groups":       []string{"region", "income"},
		"out":          "./data/analysis.xlsx",
		"sheet-prefix": "remittance_",
		"log-level":    "info",
	})
	if err != nil {
		return RemittanceConfig{}, err
	}

	cfg := RemittanceConfig{
		In:          v.GetString("in"),
		FlowsSheet:  v.GetString("flows-sheet"),
		LookupIn:    v.GetString("lookup-in"),
		LookupSheet: v.GetString("lookup-sheet"),
		Groups:      getStringSlice(v, "groups"),
		Out:         v.GetString("out"),
		SheetPrefix: v.GetString("sheet-prefix"),
		LogLevel:    v.GetString("log-level"),
	}
	if cfg.LookupIn == "" {
		cfg.LookupIn = cfg.In
	}
	if len(cfg.Groups) == 0 {
		return RemittanceConfig{}, fmt.Errorf("at least one remittance group is required")
	}

	return cfg, nil
}
