package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/watchtrader/config"
	"github.com/rustyeddy/watchtrader/internal/logging"
	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/market"
	"github.com/rustyeddy/watchtrader/portfolio"
	"github.com/rustyeddy/watchtrader/replay"
	"github.com/rustyeddy/watchtrader/report"
)

const (
	mockAccount = "mock"
	realAccount = "real"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Replay the watchlist ledger",
	Long: `Replay every trading day of the watchlist ledger.

The mock account is replayed first without the overlay. When the overlay
is enabled the real account is then replayed with the mock account as its
trend reference.

With a SQLite journal each account resumes from its last recorded day.

Examples:
  watchtrader run -w data/watchlist.csv -p data/prices.csv
  watchtrader run -c watchtrader.yaml --source http
  watchtrader run -c watchtrader.yaml --no-overlay`,
	RunE: runRun,
}

var (
	runWatchlist string
	runPrices    string
	runSource    string
	runDBPath    string
	runNoOverlay bool
	runChart     string
	runOrg       string
	runTimeout   int
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runWatchlist, "watchlist", "w", "", "watchlist ledger CSV (date,code,name)")
	runCmd.Flags().StringVarP(&runPrices, "prices", "p", "", "price CSV (date,code,open,close)")
	runCmd.Flags().StringVar(&runSource, "source", "", "price source: csv or http")
	runCmd.Flags().StringVarP(&runDBPath, "db", "d", "", "SQLite journal path")
	runCmd.Flags().BoolVar(&runNoOverlay, "no-overlay", false, "replay the mock account only")
	runCmd.Flags().StringVar(&runChart, "chart", "", "equity chart PNG; the account name is added to the file name")
	runCmd.Flags().StringVar(&runOrg, "org", "", "org-mode run report; the account name is added to the file name")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "quote request timeout in seconds for --source http")
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyRunFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	log := newLogger(cfg)

	watchlists, err := journal.LoadWatchlists(cfg.Data.Watchlist)
	if err != nil {
		return fmt.Errorf("load watchlists: %w", err)
	}

	quotes, err := newOracle(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		log.Info().Int("hits", quotes.Hits()).Msg("quote cache")
	}()

	j, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("create journal: %w", err)
	}
	defer j.Close()

	fmt.Printf("Replaying %d trading days from: %s\n", len(watchlists.Days()), cfg.Data.Watchlist)

	mock, start, err := openAccount(j, mockAccount, cfg.PortfolioOptions())
	if err != nil {
		return err
	}
	opts := cfg.ReplayOptions()
	opts.Start = start
	if err := replayAccount(ctx, cfg, mock, quotes, j, opts, watchlists, log); err != nil {
		return err
	}

	if !cfg.Overlay.Enabled {
		return nil
	}

	gated, start, err := openAccount(j, realAccount, cfg.PortfolioOptions())
	if err != nil {
		return err
	}
	opts = cfg.ReplayOptions()
	opts.Start = start
	opts.OverlayEnabled = true
	opts.Reference = mock
	return replayAccount(ctx, cfg, gated, quotes, j, opts, watchlists, log)
}

func applyRunFlags(cfg *config.Config) {
	if runWatchlist != "" {
		cfg.Data.Watchlist = runWatchlist
	}
	if runPrices != "" {
		cfg.Data.Prices = runPrices
	}
	if runSource != "" {
		cfg.Data.PriceSource = runSource
	}
	if runDBPath != "" {
		cfg.Journal.Type = "sqlite"
		cfg.Journal.DBPath = runDBPath
	}
	if runNoOverlay {
		cfg.Overlay.Enabled = false
	}
	if runChart != "" {
		cfg.Report.ChartFile = runChart
	}
	if runOrg != "" {
		cfg.Report.OrgFile = runOrg
	}
	if runTimeout > 0 {
		cfg.Data.TimeoutSeconds = runTimeout
	}
}

// newOracle returns the configured price source behind a per-run cache.
func newOracle(cfg *config.Config, log *logging.Logger) (*market.CachedOracle, error) {
	switch cfg.Data.PriceSource {
	case "http":
		o := market.NewHTTPOracle(append(cfg.HTTPOptions(), market.WithLogger(log))...)
		return market.NewCachedOracle(o), nil
	default:
		o, err := market.LoadCSV(cfg.Data.Prices)
		if err != nil {
			return nil, fmt.Errorf("load prices: %w", err)
		}
		return market.NewCachedOracle(o), nil
	}
}

func openJournal(cfg *config.Config) (journal.Journal, error) {
	if cfg.Journal.Type == "csv" {
		return journal.NewCSV(cfg.Journal.HoldingsFile, cfg.Journal.DaysFile)
	}
	return journal.NewSQLite(cfg.Journal.DBPath)
}

// openAccount restores name from the journal's latest checkpoint, or
// opens a fresh account. The returned day is the last accounted day.
func openAccount(j journal.Journal, name string, opts portfolio.Options) (*portfolio.Account, time.Time, error) {
	db, ok := j.(*journal.SQLite)
	if !ok {
		return portfolio.NewAccount(name, opts), time.Time{}, nil
	}

	data, day, err := db.LoadSnapshot(name)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load %s checkpoint: %w", name, err)
	}
	if data == nil {
		return portfolio.NewAccount(name, opts), time.Time{}, nil
	}

	acct, err := portfolio.Decode(data)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("restore %s: %w", name, err)
	}
	if saved := acct.Options(); !sameOptions(saved, opts) {
		fmt.Printf("Warning: %s keeps its checkpoint settings (per stock %s, window %d), not the config's\n",
			name, journal.Money(saved.PerStockAmount), saved.WindowSize)
	}
	fmt.Printf("Resuming %s after %s\n", name, market.DateKey(day))
	return acct, day, nil
}

func replayAccount(ctx context.Context, cfg *config.Config, acct *portfolio.Account, quotes market.Oracle,
	j journal.Journal, opts replay.Options, src replay.WatchlistSource, log *logging.Logger) error {
	opts.AfterRun = func(rec *journal.RunRecord) error {
		return writeReports(cfg, acct, rec, log)
	}
	engine, err := replay.NewEngine(acct, quotes, j, opts, log)
	if err != nil {
		return err
	}

	rec, err := engine.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("replay %s after %d days: %w", acct.Name, rec.Days, err)
	}

	fmt.Printf("\n%s replay complete (run %s)\n", acct.Name, rec.RunID)
	fmt.Printf("  Days: %d\n", rec.Days)
	fmt.Printf("  Total: %s\n", journal.Money(acct.TotalValue))
	fmt.Printf("  Cash: %s\n", journal.Money(acct.CashValue))
	fmt.Printf("  Profit: %s\n", journal.Percent(acct.ProfitRate))
	fmt.Printf("  Max drawdown: %s\n", journal.Percent(rec.MaxDrawdown))
	fmt.Printf("  Holdings: %d\n", len(acct.Codes()))
	if rec.OrgPath != "" {
		fmt.Printf("  Report: %s\n", rec.OrgPath)
	}
	if rec.ChartPNG != "" {
		fmt.Printf("  Chart: %s\n", rec.ChartPNG)
	}
	return nil
}

// writeReports writes the chart and org report of a finished run and
// records their paths on rec.
func writeReports(cfg *config.Config, acct *portfolio.Account, rec *journal.RunRecord, log *logging.Logger) error {
	if path := accountFile(cfg.Report.ChartFile, acct.Name); path != "" {
		rows := report.Rows(acct)
		if len(rows) < 2 {
			log.Warn().Str("account", acct.Name).Msg("not enough accounted days for a chart")
		} else if err := report.SaveChart(path, "Account "+acct.Name, rows); err != nil {
			return err
		} else {
			rec.ChartPNG = path
		}
	}
	if path := accountFile(cfg.Report.OrgFile, acct.Name); path != "" {
		rec.OrgPath = path
		if err := rec.WriteOrg(); err != nil {
			return fmt.Errorf("write run report: %w", err)
		}
	}
	return nil
}

func sameOptions(a, b portfolio.Options) bool {
	return a.InitialValue == b.InitialValue &&
		a.PerStockAmount == b.PerStockAmount &&
		a.WindowSize == b.WindowSize &&
		a.AllowTopUp == b.AllowTopUp &&
		slices.Equal(a.Periods, b.Periods)
}

// accountFile inserts the account name before the extension:
// equity.png becomes equity-real.png.
func accountFile(path, account string) string {
	if path == "" {
		return ""
	}
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "-" + account + ext
}
