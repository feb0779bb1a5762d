package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"feeScope/internal/model"
)

// EnvPrefix namespaces environment overrides, e.g. FEESCOPE_OWLRACLE_KEY.
const EnvPrefix = "FEESCOPE"

// ScrapeStat maps a chart slug to the column it fills.
type ScrapeStat struct {
	Slug   string `mapstructure:"slug"`
	Column string `mapstructure:"column"`
}

// FetchConfig holds configuration for the fetch command.
type FetchConfig struct {
	Start time.Time
	End   time.Time

	APIOut     string
	ScrapedOut string
	GasOut     string
	GasSheet   string

	Sources  []string
	Assets   map[string]string
	Currency string
	Scrape   map[string][]ScrapeStat

	CoinGeckoKey      string
	CoinGeckoInterval time.Duration
	OwlracleKey       string
	OwlracleNetwork   string
	OwlracleInterval  time.Duration
	Headless          bool
	ScrapeTimeout     time.Duration
	RPCURL            string
	RPCSheet          string

	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
}

// LoadFetch merges .env, config file, environment variables, and flags into FetchConfig.
func LoadFetch(cfgFile string, flags *pflag.FlagSet) (FetchConfig, error) {
	v, err := load(cfgFile, flags, map[string]any{
		"api-out":            "./data/api.xlsx",
		"scraped-out":        "./data/scraped.xlsx",
		"gas-out":            "./data/gas.xlsx",
		"gas-sheet":          "gas",
		"sources":            []string{"coingecko", "owlracle", "bitinfocharts"},
		"currency":           "usd",
		"coingecko-interval": 3 * time.Second,
		"owlracle-network":   "eth",
		"owlracle-interval":  time.Second,
		"headless":           true,
		"scrape-timeout":     30 * time.Second,
		"rpc-sheet":          "eth_rpc",
		"checkpoint":         "./data/fetch_checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      2 * time.Second,
		"log-level":          "info",
	})
	if err != nil {
		return FetchConfig{}, err
	}

	start, end, err := dateRange(v)
	if err != nil {
		return FetchConfig{}, err
	}

	scrape := make(map[string][]ScrapeStat)
	if v.IsSet("scrape") {
		if err := v.UnmarshalKey("scrape", &scrape); err != nil {
			return FetchConfig{}, fmt.Errorf("parse scrape stats: %w", err)
		}
	}

	cfg := FetchConfig{
		Start:             start,
		End:               end,
		APIOut:            v.GetString("api-out"),
		ScrapedOut:        v.GetString("scraped-out"),
		GasOut:            v.GetString("gas-out"),
		GasSheet:          v.GetString("gas-sheet"),
		Sources:           getStringSlice(v, "sources"),
		Assets:            v.GetStringMapString("assets"),
		Currency:          v.GetString("currency"),
		Scrape:            scrape,
		CoinGeckoKey:      v.GetString("coingecko-key"),
		CoinGeckoInterval: v.GetDuration("coingecko-interval"),
		OwlracleKey:       v.GetString("owlracle-key"),
		OwlracleNetwork:   v.GetString("owlracle-network"),
		OwlracleInterval:  v.GetDuration("owlracle-interval"),
		Headless:          v.GetBool("headless"),
		ScrapeTimeout:     v.GetDuration("scrape-timeout"),
		RPCURL:            v.GetString("rpc"),
		RPCSheet:          v.GetString("rpc-sheet"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}

	return cfg, nil
}

// HasSource reports whether a named source is enabled.
func (c FetchConfig) HasSource(name string) bool {
	for _, s := range c.Sources {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// AssetSymbols returns the configured symbols in sorted order.
func (c FetchConfig) AssetSymbols() []string {
	return sortedKeys(c.Assets)
}

// load builds a viper instance with the shared precedence: flags, then
// environment, then config file, then defaults.
func load(cfgFile string, flags *pflag.FlagSet, defaults map[string]any) (*viper.Viper, error) {
	envFile := ".env"
	if flags != nil {
		if f := flags.Lookup("env-file"); f != nil && f.Value.String() != "" {
			envFile = f.Value.String()
		}
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load env file: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func dateRange(v *viper.Viper) (time.Time, time.Time, error) {
	rawStart := strings.TrimSpace(v.GetString("start"))
	rawEnd := strings.TrimSpace(v.GetString("end"))
	if rawStart == "" || rawEnd == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("start and end dates are required")
	}
	start, err := model.ParseDay(rawStart)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("start: %w", err)
	}
	end, err := model.ParseDay(rawEnd)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("end %s is before start %s", rawEnd, rawStart)
	}
	return start, end, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func getIntSlice(val any) ([]int, error) {
	var items []string
	switch typed := val.(type) {
	case nil:
		return nil, nil
	case []int:
		return typed, nil
	case []string:
		items = cleanStrings(typed)
	case string:
		items = splitAndClean(typed)
	case []interface{}:
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		items = cleanStrings(items)
	default:
		return nil, fmt.Errorf("unsupported value %v", val)
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		n, err := strconv.Atoi(item)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", item)
		}
		out = append(out, n)
	}
	return out, nil
}
