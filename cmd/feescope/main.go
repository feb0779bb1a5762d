package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"feeScope/internal/chain"
	"feeScope/internal/config"
	"feeScope/internal/fetch"
	"feeScope/internal/source"
	"feeScope/internal/source/bitinfo"
	"feeScope/internal/source/coingecko"
	"feeScope/internal/source/owlracle"
	"feeScope/internal/storage/workbook"
)

func main() {
	root := &cobra.Command{
		Use:          "feescope",
		Short:        "Crypto remittance fee analysis",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")
	root.PersistentFlags().String("env-file", "", "dotenv file with credentials (default .env)")

	fetchCmd := &cobra.Command{
		Use:   "fetch",
		Short: "Pull raw market, chart and gas data into workbooks",
		RunE:  runFetch,
	}

	fetchCmd.Flags().String("start", "", "first day (YYYY-MM-DD)")
	fetchCmd.Flags().String("end", "", "last day (YYYY-MM-DD), inclusive")
	fetchCmd.Flags().StringSlice("sources", nil, "sources to pull (coingecko, owlracle, bitinfocharts)")
	fetchCmd.Flags().String("api-out", "./data/api.xlsx", "workbook for API market data")
	fetchCmd.Flags().String("scraped-out", "./data/scraped.xlsx", "workbook for scraped chart data")
	fetchCmd.Flags().String("gas-out", "./data/gas.xlsx", "workbook for gas fee data")
	fetchCmd.Flags().String("gas-sheet", "gas", "sheet name for Owlracle gas data")
	fetchCmd.Flags().String("currency", "usd", "quote currency for market data")
	fetchCmd.Flags().String("coingecko-key", "", "CoinGecko demo API key")
	fetchCmd.Flags().Duration("coingecko-interval", coingecko.DefaultInterval, "minimum spacing between CoinGecko calls")
	fetchCmd.Flags().String("owlracle-key", "", "Owlracle API key")
	fetchCmd.Flags().String("owlracle-network", owlracle.DefaultNetwork, "Owlracle network")
	fetchCmd.Flags().Duration("owlracle-interval", owlracle.DefaultInterval, "minimum spacing between Owlracle calls")
	fetchCmd.Flags().Bool("headless", true, "run the chart browser headless")
	fetchCmd.Flags().Duration("scrape-timeout", 30*time.Second, "page load timeout per chart")
	fetchCmd.Flags().String("rpc", "", "Ethereum RPC URL for base fee sampling (optional)")
	fetchCmd.Flags().String("rpc-sheet", "eth_rpc", "sheet name for RPC gas data")
	fetchCmd.Flags().String("checkpoint", "./data/fetch_checkpoint.json", "checkpoint file path")
	fetchCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	fetchCmd.Flags().Int("max-retries", 5, "maximum retry attempts")
	fetchCmd.Flags().Duration("retry-backoff", 2*time.Second, "initial retry backoff")
	fetchCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(fetchCmd)

	analyzeCmd := &cobra.Command{
		Use:   "analyze",
		Short: "Clean, merge and impute raw data, then compute fee scenarios",
		RunE:  runAnalyze,
	}

	analyzeCmd.Flags().String("api-in", "./data/api.xlsx", "API market data workbook")
	analyzeCmd.Flags().String("scraped-in", "./data/scraped.xlsx", "scraped chart data workbook")
	analyzeCmd.Flags().String("gas-in", "", "gas fee workbook for the stablecoin scenario (optional)")
	analyzeCmd.Flags().String("gas-sheet", "gas", "sheet name in the gas workbook")
	analyzeCmd.Flags().StringSlice("symbols", nil, "assets to analyze (default: configured assets)")
	analyzeCmd.Flags().StringSlice("winsorize", nil, "scraped sheets to winsorize and realign")
	analyzeCmd.Flags().Float64("winsorize-lower", 0.05, "lower tail fraction to clip")
	analyzeCmd.Flags().Float64("winsorize-upper", 0.05, "upper tail fraction to clip")
	analyzeCmd.Flags().String("start", "", "left boundary for realigned sheets (YYYY-MM-DD, optional)")
	analyzeCmd.Flags().Int("from-year", 2019, "first scenario year")
	analyzeCmd.Flags().Int("to-year", 2022, "last scenario year")
	analyzeCmd.Flags().String("fee-column", "", "fee column (default: detected)")
	analyzeCmd.Flags().String("value-column", "", "transaction value column (default: detected)")
	analyzeCmd.Flags().String("volume-column", "24h_volume", "volume weight column")
	analyzeCmd.Flags().String("gas-fee-column", "transaction_fees", "gas fee column")
	analyzeCmd.Flags().Float64("transfer", 200, "stablecoin transfer amount")
	analyzeCmd.Flags().String("gas-price-asset", "eth", "API sheet whose prices convert ETH gas fees to USD")
	analyzeCmd.Flags().Int("chains", 3, "imputation chains")
	analyzeCmd.Flags().Int("passes", 3, "imputation passes per chain")
	analyzeCmd.Flags().Int64("seed", 123, "imputation random seed")
	analyzeCmd.Flags().String("chain-mode", "first", "chain combination (first, mean)")
	analyzeCmd.Flags().Int("donors", 5, "predictive mean matching donors")
	analyzeCmd.Flags().Int("concurrency", 4, "assets processed in parallel")
	analyzeCmd.Flags().String("out", "./data/analysis.xlsx", "output workbook")
	analyzeCmd.Flags().String("out-jsonl", "", "scenario rows JSONL (optional)")
	analyzeCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	analyzeCmd.Flags().String("run-id", "", "run identifier (default: UTC timestamp)")
	analyzeCmd.Flags().String("state-file", "", "optional local state file for run tracking")
	analyzeCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(analyzeCmd)

	forecastCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project yearly fee tables with a least squares line",
		RunE:  runForecast,
	}

	forecastCmd.Flags().String("in", "./data/analysis.xlsx", "workbook with the yearly table")
	forecastCmd.Flags().String("sheet", "comparison", "yearly table sheet")
	forecastCmd.Flags().String("out", "", "output workbook (default: input workbook)")
	forecastCmd.Flags().String("out-sheet", "forecast", "forecast sheet name")
	forecastCmd.Flags().IntSlice("years", nil, "target years (comma-separated)")
	forecastCmd.Flags().Int("horizon", 2, "years after the last observed year when no targets are given")
	forecastCmd.Flags().String("pg-dsn", "", "Postgres DSN (optional)")
	forecastCmd.Flags().String("run-id", "", "run identifier (default: UTC timestamp)")
	forecastCmd.Flags().String("state-file", "", "optional local state file for run tracking")
	forecastCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(forecastCmd)

	remittanceCmd := &cobra.Command{
		Use:   "remittance",
		Short: "Average country remittance flows by region and income group",
		RunE:  runRemittance,
	}

	remittanceCmd.Flags().String("in", "./data/remittance.xlsx", "workbook with country remittance flows")
	remittanceCmd.Flags().String("flows-sheet", "flows", "sheet with one row per country code and a column per year")
	remittanceCmd.Flags().String("lookup-in", "", "workbook with the country lookup (default: input workbook)")
	remittanceCmd.Flags().String("lookup-sheet", "lookup", "sheet with Country Code, Region and Income columns")
	remittanceCmd.Flags().StringSlice("groups", []string{"region", "income"}, "groupings to average by (region, income)")
	remittanceCmd.Flags().String("out", "./data/analysis.xlsx", "output workbook")
	remittanceCmd.Flags().String("sheet-prefix", "remittance_", "prefix for the yearly output sheets")
	remittanceCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(remittanceCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runFetch(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadFetch(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var jobs []source.Job

	if cfg.HasSource("coingecko") {
		if len(cfg.Assets) == 0 {
			return fmt.Errorf("coingecko: asset list is required")
		}
		client := coingecko.NewClient(nil, coingecko.Options{
			APIKey:       cfg.CoinGeckoKey,
			Interval:     cfg.CoinGeckoInterval,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		for _, symbol := range cfg.AssetSymbols() {
			jobs = append(jobs, source.Job{
				Target:  cfg.APIOut,
				Sheet:   symbol,
				Fetcher: client.Fetcher(cfg.Assets[symbol], cfg.Currency, cfg.Start, cfg.End),
			})
		}
	}

	if cfg.HasSource("owlracle") {
		if cfg.OwlracleKey == "" {
			return fmt.Errorf("owlracle: api key is required")
		}
		client := owlracle.NewClient(nil, owlracle.Options{
			Network:      cfg.OwlracleNetwork,
			APIKey:       cfg.OwlracleKey,
			Interval:     cfg.OwlracleInterval,
			MaxRetries:   cfg.MaxRetries,
			RetryBackoff: cfg.RetryBackoff,
		}, logger)
		jobs = append(jobs, source.Job{
			Target:  cfg.GasOut,
			Sheet:   cfg.GasSheet,
			Fetcher: client.Fetcher(cfg.Start, cfg.End),
		})
	}

	if cfg.HasSource("bitinfocharts") && len(cfg.Scrape) > 0 {
		loader := bitinfo.NewBrowserLoader(cfg.Headless, cfg.ScrapeTimeout)
		defer loader.Close()
		scraper := bitinfo.NewScraper(loader, "", logger)
		for _, token := range scrapeTokens(cfg.Scrape) {
			stats := make([]bitinfo.Stat, 0, len(cfg.Scrape[token]))
			for _, s := range cfg.Scrape[token] {
				stats = append(stats, bitinfo.Stat(s))
			}
			jobs = append(jobs, source.Job{
				Target:  cfg.ScrapedOut,
				Sheet:   token,
				Fetcher: scraper.Fetcher(stats, cfg.Start, cfg.End),
			})
		}
	}

	if cfg.RPCURL != "" {
		chainClient, err := chain.NewClient(ctx, cfg.RPCURL)
		if err != nil {
			return fmt.Errorf("connect rpc: %w", err)
		}
		defer chainClient.Close()

		sampler := chain.NewGasSampler(chainClient, cfg.MaxRetries, cfg.RetryBackoff, logger)
		jobs = append(jobs, source.Job{
			Target:  cfg.GasOut,
			Sheet:   cfg.RPCSheet,
			Fetcher: sampler.Fetcher(cfg.Start, cfg.End),
		})
	}

	runner := fetch.NewRunner(fetch.RunConfig{
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
	}, jobs, workbook.Sink{}, logger)

	logger.Info("fetch start",
		zap.String("start", cfg.Start.Format("2006-01-02")),
		zap.String("end", cfg.End.Format("2006-01-02")),
		zap.Strings("sources", cfg.Sources),
		zap.Int("jobs", len(jobs)),
		zap.String("api_out", cfg.APIOut),
		zap.String("scraped_out", cfg.ScrapedOut),
		zap.String("gas_out", cfg.GasOut),
		zap.Bool("rpc", cfg.RPCURL != ""),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx)
}

func scrapeTokens(scrape map[string][]config.ScrapeStat) []string {
	tokens := make([]string, 0, len(scrape))
	for token := range scrape {
		tokens = append(tokens, token)
	}
	sort.Strings(tokens)
	return tokens
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func runIDOrNow(runID string) string {
	if runID != "" {
		return runID
	}
	return time.Now().UTC().Format("20060102T150405Z")
}
