package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/watchtrader/config"
	"github.com/rustyeddy/watchtrader/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "watchtrader",
	Short: "Replay a daily stock watchlist strategy against historical prices",
	Long: `Watchtrader replays a daily stock watchlist against historical prices.

Each trading day it sells codes that dropped off the watchlist at the
opening price, buys new codes with a fixed amount, marks holdings to the
closing price and records the account's value and moving averages.

A second account can replay the same watchlists while halving positions
whenever the first account's value is below its 20 day average.

It provides tools for:
  - Replaying watchlist ledgers into a SQLite or CSV journal
  - Resuming a replay from the last recorded day
  - Equity curve charts and org-mode run reports
  - Querying recorded days, holdings and runs`,
	SilenceUsage: true,
}

var (
	configPath string
	envFile    string
	logLevel   string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (yaml, json or toml); defaults are used when empty")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with WATCHTRADER_* overrides")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// loadConfig reads the config file, or the defaults, with environment
// overrides applied.
func loadConfig() (*config.Config, error) {
	if err := config.LoadEnv(envFile); err != nil {
		return nil, err
	}

	if configPath != "" {
		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		return cfg, nil
	}

	cfg := config.Default()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	level := cfg.Log.Level
	if logLevel != "" {
		level = logLevel
	}
	return logging.New(level)
}
