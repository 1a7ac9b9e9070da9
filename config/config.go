package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/watchtrader/market"
	"github.com/rustyeddy/watchtrader/portfolio"
	"github.com/rustyeddy/watchtrader/replay"
)

// Environment variables that override file settings.
const (
	EnvDB       = "WATCHTRADER_DB"
	EnvLogLevel = "WATCHTRADER_LOG_LEVEL"
	EnvPrices   = "WATCHTRADER_PRICES"
	EnvQuoteURL = "WATCHTRADER_QUOTE_URL"
)

// Config represents the complete replay configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account" toml:"account"`
	Averages AveragesConfig `json:"averages" yaml:"averages" toml:"averages"`
	Overlay  OverlayConfig  `json:"overlay" yaml:"overlay" toml:"overlay"`
	Data     DataConfig     `json:"data" yaml:"data" toml:"data"`
	Journal  JournalConfig  `json:"journal" yaml:"journal" toml:"journal"`
	Report   ReportConfig   `json:"report" yaml:"report" toml:"report"`
	Log      LogConfig      `json:"log" yaml:"log" toml:"log"`
}

// AccountConfig contains the capital rules shared by every account
type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital" toml:"initial_capital"`
	PerStockAmount float64 `json:"per_stock_amount" yaml:"per_stock_amount" toml:"per_stock_amount"`
	MaxWatchlist   int     `json:"max_watchlist" yaml:"max_watchlist" toml:"max_watchlist"` // 0 means unlimited
	AllowTopUp     bool    `json:"allow_top_up" yaml:"allow_top_up" toml:"allow_top_up"`
}

// AveragesConfig sets the moving averages kept for every accounted day
type AveragesConfig struct {
	Periods    []int `json:"periods" yaml:"periods" toml:"periods"`
	WindowSize int   `json:"window_size" yaml:"window_size" toml:"window_size"`
}

// OverlayConfig controls the second, trend-gated account
type OverlayConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	Period      int     `json:"period" yaml:"period" toml:"period"`
	ReduceRatio float64 `json:"reduce_ratio" yaml:"reduce_ratio" toml:"reduce_ratio"`
}

// DataConfig locates the watchlist ledger and the price source
type DataConfig struct {
	Watchlist   string `json:"watchlist" yaml:"watchlist" toml:"watchlist"`
	Prices      string `json:"prices,omitempty" yaml:"prices,omitempty" toml:"prices,omitempty"`
	PriceSource string `json:"price_source" yaml:"price_source" toml:"price_source"` // "csv" or "http"
	QuoteURL    string `json:"quote_url,omitempty" yaml:"quote_url,omitempty" toml:"quote_url,omitempty"`
	RateLimit   int    `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty" toml:"rate_limit,omitempty"`

	// TimeoutSeconds bounds one quote request; 0 keeps the client default.
	TimeoutSeconds int `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" toml:"timeout_seconds,omitempty"`
	// Prefixes are the exchange prefixes tried in order for each code.
	Prefixes []string `json:"prefixes,omitempty" yaml:"prefixes,omitempty" toml:"prefixes,omitempty"`
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type         string `json:"type" yaml:"type" toml:"type"` // "csv" or "sqlite"
	DBPath       string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
	HoldingsFile string `json:"holdings_file,omitempty" yaml:"holdings_file,omitempty" toml:"holdings_file,omitempty"`
	DaysFile     string `json:"days_file,omitempty" yaml:"days_file,omitempty" toml:"days_file,omitempty"`
}

// ReportConfig names the files written after a run. Empty skips the file.
type ReportConfig struct {
	ChartFile string `json:"chart_file,omitempty" yaml:"chart_file,omitempty" toml:"chart_file,omitempty"`
	OrgFile   string `json:"org_file,omitempty" yaml:"org_file,omitempty" toml:"org_file,omitempty"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" toml:"level"`
}

// LoadFromFile loads configuration from a file over the defaults: TOML for
// .toml files, otherwise YAML with a JSON fallback. Environment overrides
// are applied before validation.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (toml): %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		// Try YAML first, fall back to JSON
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// LoadEnv reads .env files into the process environment without replacing
// variables that are already set. Missing files are skipped.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from WATCHTRADER_* environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDB); v != "" {
		c.Journal.DBPath = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv(EnvPrices); v != "" {
		c.Data.Prices = v
	}
	if v := os.Getenv(EnvQuoteURL); v != "" {
		c.Data.QuoteURL = v
	}
}

// SaveToFile saves configuration to a file (YAML, TOML or JSON based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		data, err = toml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if c.Account.PerStockAmount <= 0 {
		return fmt.Errorf("account.per_stock_amount must be positive")
	}
	if c.Account.PerStockAmount > c.Account.InitialCapital {
		return fmt.Errorf("account.per_stock_amount exceeds account.initial_capital")
	}
	if c.Account.MaxWatchlist < 0 {
		return fmt.Errorf("account.max_watchlist must not be negative")
	}
	if c.Averages.WindowSize <= 0 {
		return fmt.Errorf("averages.window_size must be positive")
	}
	for _, p := range c.Averages.Periods {
		if p < 1 || p > c.Averages.WindowSize {
			return fmt.Errorf("averages.periods: %d outside [1, %d]", p, c.Averages.WindowSize)
		}
	}
	if c.Overlay.Enabled {
		if !slices.Contains(c.Averages.Periods, c.Overlay.Period) {
			return fmt.Errorf("overlay.period %d is not one of averages.periods", c.Overlay.Period)
		}
		if c.Overlay.ReduceRatio <= 0 || c.Overlay.ReduceRatio > 1 {
			return fmt.Errorf("overlay.reduce_ratio must be in (0, 1]")
		}
	}
	switch c.Data.PriceSource {
	case "csv":
		if c.Data.Prices == "" {
			return fmt.Errorf("data.prices required for csv price source")
		}
	case "http":
		if c.Data.RateLimit <= 0 {
			return fmt.Errorf("data.rate_limit must be positive for http price source")
		}
		if c.Data.TimeoutSeconds < 0 {
			return fmt.Errorf("data.timeout_seconds must not be negative")
		}
		if len(c.Data.Prefixes) == 0 {
			return fmt.Errorf("data.prefixes required for http price source")
		}
	default:
		return fmt.Errorf("data.price_source must be 'csv' or 'http'")
	}
	if c.Journal.Type != "csv" && c.Journal.Type != "sqlite" {
		return fmt.Errorf("journal.type must be 'csv' or 'sqlite'")
	}
	if c.Journal.Type == "csv" && (c.Journal.HoldingsFile == "" || c.Journal.DaysFile == "") {
		return fmt.Errorf("journal holdings_file and days_file required for CSV type")
	}
	if c.Journal.Type == "sqlite" && c.Journal.DBPath == "" {
		return fmt.Errorf("journal db_path required for SQLite type")
	}
	return nil
}

// Default returns a configuration with the stock replay defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			InitialCapital: 2_000_000,
			PerStockAmount: 50_000,
			MaxWatchlist:   30,
		},
		Averages: AveragesConfig{
			Periods:    []int{5, 10, 20, 60},
			WindowSize: 60,
		},
		Overlay: OverlayConfig{
			Enabled:     true,
			Period:      20,
			ReduceRatio: 0.5,
		},
		Data: DataConfig{
			Watchlist:   "./watchlist.csv",
			Prices:      "./prices.csv",
			PriceSource: "csv",
			QuoteURL:    market.DefaultQuoteURL,
			RateLimit:   market.DefaultRateLimit,

			TimeoutSeconds: int(market.DefaultTimeout / time.Second),
			Prefixes:       slices.Clone(market.DefaultPrefixes),
		},
		Journal: JournalConfig{
			Type:         "sqlite",
			DBPath:       "./watchtrader.sqlite",
			HoldingsFile: "./holdings.csv",
			DaysFile:     "./days.csv",
		},
		Report: ReportConfig{
			ChartFile: "./equity.png",
			OrgFile:   "./run.org",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// HTTPOptions returns the quote client options the config describes.
func (c *Config) HTTPOptions() []market.HTTPOption {
	opts := []market.HTTPOption{
		market.WithURL(c.Data.QuoteURL),
		market.WithRateLimit(c.Data.RateLimit),
		market.WithPrefixes(c.Data.Prefixes...),
	}
	if c.Data.TimeoutSeconds > 0 {
		opts = append(opts, market.WithTimeout(time.Duration(c.Data.TimeoutSeconds)*time.Second))
	}
	return opts
}

// PortfolioOptions returns the account options the config describes.
func (c *Config) PortfolioOptions() portfolio.Options {
	return portfolio.Options{
		InitialValue:   c.Account.InitialCapital,
		PerStockAmount: c.Account.PerStockAmount,
		WindowSize:     c.Averages.WindowSize,
		Periods:        slices.Clone(c.Averages.Periods),
		AllowTopUp:     c.Account.AllowTopUp,
	}
}

// ReplayOptions returns engine options for an account replayed without
// the overlay. The caller sets OverlayEnabled and Reference for the
// overlay account.
func (c *Config) ReplayOptions() replay.Options {
	return replay.Options{
		OverlayPeriod: c.Overlay.Period,
		ReduceRatio:   c.Overlay.ReduceRatio,
		MaxWatchlist:  c.Account.MaxWatchlist,
	}
}
