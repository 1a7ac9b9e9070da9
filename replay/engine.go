// Package replay drives an Account through a sequence of daily watchlists.
package replay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/watchtrader/internal/logging"
	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/market"
	"github.com/rustyeddy/watchtrader/pkg/id"
	"github.com/rustyeddy/watchtrader/portfolio"
)

// ErrDayAccounted is returned by Step for a day on or before the account's
// current date.
var ErrDayAccounted = errors.New("day already accounted")

// Options configure one account's replay.
type Options struct {
	// OverlayEnabled halves a watched position while Reference is below its
	// OverlayPeriod average. Reference must already be accounted for every
	// replayed day.
	OverlayEnabled bool
	Reference      *portfolio.Account
	OverlayPeriod  int
	ReduceRatio    float64

	// MaxWatchlist truncates longer watchlists to their first rows; zero
	// means no limit.
	MaxWatchlist int

	// Start is the last day already reflected in the account. Run skips
	// every day up to and including it. Zero means the account's
	// CurrentDate.
	Start time.Time

	// AfterRun is called with the finished record of a successful run before
	// it is recorded, so report paths it writes are part of the record.
	AfterRun func(rec *journal.RunRecord) error
}

func DefaultOptions() Options {
	return Options{
		OverlayPeriod: 20,
		ReduceRatio:   0.5,
		MaxWatchlist:  30,
	}
}

// WatchlistSource supplies the trading days and their watchlists.
type WatchlistSource interface {
	Days() []time.Time
	Watchlist(day time.Time) []market.Stock
}

type counters struct {
	buys       int
	sells      int
	reductions int
	skipped    int
}

// Engine replays one account. It owns the account for the duration of a
// run and is not safe for concurrent use.
type Engine struct {
	acct    *portfolio.Account
	quotes  market.Oracle
	journal journal.Journal
	opts    Options
	log     *logging.Logger

	counters counters
}

func NewEngine(acct *portfolio.Account, quotes market.Oracle, j journal.Journal, opts Options, log *logging.Logger) (*Engine, error) {
	if acct == nil || quotes == nil || j == nil {
		return nil, errors.New("replay: account, oracle and journal are required")
	}
	if opts.OverlayEnabled {
		if opts.Reference == nil {
			return nil, errors.New("replay: overlay enabled without a reference account")
		}
		if opts.Reference == acct {
			return nil, errors.New("replay: an account cannot be its own overlay reference")
		}
		if opts.OverlayPeriod <= 0 {
			return nil, fmt.Errorf("replay: overlay period %d must be positive", opts.OverlayPeriod)
		}
		if opts.ReduceRatio <= 0 || opts.ReduceRatio > 1 {
			return nil, fmt.Errorf("replay: reduce ratio %.4f: %w", opts.ReduceRatio, portfolio.ErrInvalidRatio)
		}
	}
	if log == nil {
		log = logging.NewSilent()
	}
	return &Engine{
		acct:    acct,
		quotes:  quotes,
		journal: j,
		opts:    opts,
		log:     log.With("account", acct.Name),
	}, nil
}

func (e *Engine) Account() *portfolio.Account { return e.acct }

func (e *Engine) overlay() bool {
	return e.opts.OverlayEnabled && e.opts.Reference != nil
}

// Step processes one trading day: exits, then entries and marks in
// watchlist order with the overlay applied, then the day's accounting. The
// day is committed to the journal only after every step succeeded. On any
// error the account is returned to its state before the day, so the day can
// be retried.
func (e *Engine) Step(ctx context.Context, day time.Time, watchlist []market.Stock) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	day = market.Day(day)
	prev := e.acct.CurrentDate()
	if !prev.IsZero() && !day.After(prev) {
		return fmt.Errorf("%s on %s (current %s): %w", e.acct.Name, market.DateKey(day), market.DateKey(prev), ErrDayAccounted)
	}

	before := e.acct.Snapshot()
	saved := e.counters
	if err := e.step(ctx, day, watchlist); err != nil {
		e.counters = saved
		if rerr := e.acct.Reset(before); rerr != nil {
			return errors.Join(err, rerr)
		}
		return err
	}
	return nil
}

func (e *Engine) step(ctx context.Context, day time.Time, watchlist []market.Stock) error {
	date := market.DateKey(day)
	watchlist = e.normalize(day, watchlist)
	target := make(map[string]bool, len(watchlist))
	for _, s := range watchlist {
		target[s.Code] = true
	}

	for _, code := range e.acct.Codes() {
		if target[code] {
			continue
		}
		proceeds, err := e.acct.SellOut(ctx, e.quotes, code, day, 1)
		if errors.Is(err, portfolio.ErrPriceUnavailable) {
			// The position is carried into the next day's diff.
			e.counters.skipped++
			e.log.Warn().Str("code", code).Str("date", date).Msg("no quote for exit, holding carried forward")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s %s: %w", e.acct.Name, date, err)
		}
		e.counters.sells++
		e.log.Info().
			Str("code", code).
			Str("date", date).
			Float64("proceeds", proceeds).
			Float64("cash", e.acct.CashValue).
			Msg("SELL-OUT")
	}

	reduce := false
	if e.overlay() {
		below, err := e.opts.Reference.BelowMovingAverage(day, e.opts.OverlayPeriod)
		if err != nil {
			return fmt.Errorf("%s %s overlay: %w", e.acct.Name, date, err)
		}
		reduce = below
	}

	rows := make([]journal.HoldingRecord, 0, len(watchlist))
	for _, stock := range watchlist {
		q, err := e.quotes.Lookup(ctx, stock.Code, day)
		if errors.Is(err, portfolio.ErrPriceUnavailable) {
			e.counters.skipped++
			e.log.Warn().Str("code", stock.Code).Str("date", date).Msg("no quote, skipped")
			continue
		}
		if err != nil {
			return fmt.Errorf("%s %s: lookup %s: %w", e.acct.Name, date, stock.Code, err)
		}

		if !e.acct.Holds(stock.Code) {
			if _, err := e.acct.BuyIn(stock, day, q.Open); err != nil {
				return fmt.Errorf("%s %s: %w", e.acct.Name, date, err)
			}
			e.counters.buys++
			e.log.Info().
				Str("code", stock.Code).
				Str("date", date).
				Float64("price", q.Open).
				Float64("cash", e.acct.CashValue).
				Msg("BUY-IN")
		}

		if reduce && !e.acct.IsReduced(stock.Code) {
			proceeds, err := e.acct.SellOut(ctx, e.quotes, stock.Code, day, e.opts.ReduceRatio)
			if err != nil {
				return fmt.Errorf("%s %s reduce: %w", e.acct.Name, date, err)
			}
			e.acct.MarkReduced(stock.Code)
			e.counters.reductions++
			e.log.Info().
				Str("code", stock.Code).
				Str("date", date).
				Float64("proceeds", proceeds).
				Float64("cash", e.acct.CashValue).
				Msg("REDUCE")
		}

		if !e.acct.Holds(stock.Code) {
			// A reduce ratio of 1 closes the position outright.
			continue
		}
		if err := e.acct.Mark(stock.Code, q.Close); err != nil {
			return fmt.Errorf("%s %s: %w", e.acct.Name, date, err)
		}
		p, _ := e.acct.Holding(stock.Code)
		rows = append(rows, journal.HoldingRecord{
			Account:      e.acct.Name,
			Date:         day,
			Code:         stock.Code,
			Name:         stock.Name,
			CurrentValue: p.CurrentValue,
			Open:         q.Open,
			Close:        q.Close,
			BuyInPrice:   p.EntryPrice,
			Profit:       p.Profit,
			ProfitRate:   p.ProfitRate,
		})
	}

	if e.overlay() {
		above, err := e.opts.Reference.AboveMovingAverage(day, e.opts.OverlayPeriod)
		if err != nil {
			return fmt.Errorf("%s %s overlay: %w", e.acct.Name, date, err)
		}
		if above && len(e.acct.Reduced()) > 0 {
			e.log.Info().Str("date", date).Strs("codes", e.acct.Reduced()).Msg("reference above average, reductions cleared")
			e.acct.ClearReduced()
		}
	}

	if err := e.acct.ComputeDailyAccounting(day); err != nil {
		return fmt.Errorf("%s %s: %w", e.acct.Name, date, err)
	}

	e.acct.SetCurrentDate(day)
	snapshot, err := json.Marshal(e.acct)
	if err != nil {
		return fmt.Errorf("%s %s snapshot: %w", e.acct.Name, date, err)
	}
	averages, _ := e.acct.MovingAverages(day)
	rec := journal.DayRecord{
		Account:    e.acct.Name,
		Date:       day,
		TotalValue: e.acct.TotalValue,
		CashValue:  e.acct.CashValue,
		StockValue: e.acct.StockValue,
		ProfitRate: e.acct.ProfitRate,
		Averages:   averages,
		Holdings:   rows,
		Snapshot:   snapshot,
	}
	if err := e.journal.CommitDay(rec); err != nil {
		return fmt.Errorf("%s %s: %w", e.acct.Name, date, err)
	}

	e.log.Info().
		Str("date", date).
		Float64("total", e.acct.TotalValue).
		Float64("cash", e.acct.CashValue).
		Float64("stock", e.acct.StockValue).
		Str("profit_rate", journal.Percent(e.acct.ProfitRate)).
		Msg("day accounted")
	return nil
}

// normalize drops repeated codes and truncates to MaxWatchlist.
func (e *Engine) normalize(day time.Time, watchlist []market.Stock) []market.Stock {
	seen := make(map[string]bool, len(watchlist))
	out := make([]market.Stock, 0, len(watchlist))
	for _, s := range watchlist {
		if seen[s.Code] {
			continue
		}
		seen[s.Code] = true
		out = append(out, s)
	}

	if limit := e.opts.MaxWatchlist; limit > 0 && len(out) > limit {
		e.log.Warn().
			Str("date", market.DateKey(day)).
			Int("rows", len(out)).
			Int("max", limit).
			Msg("watchlist truncated")
		out = out[:limit]
	}
	return out
}

// Run steps through every day of src after the start date and records the
// run in the journal. A failed day aborts the run; the returned record then
// covers the days committed before it.
func (e *Engine) Run(ctx context.Context, src WatchlistSource) (journal.RunRecord, error) {
	e.counters = counters{}

	start := e.opts.Start
	if start.IsZero() {
		start = e.acct.CurrentDate()
	}

	rec := journal.RunRecord{
		RunID:      id.New(),
		Account:    e.acct.Name,
		Overlay:    e.overlay(),
		Started:    time.Now().UTC(),
		StartValue: e.acct.TotalValue,
	}
	e.log.Info().Str("run_id", rec.RunID).Str("start", market.DateKey(start)).Bool("overlay", rec.Overlay).Msg("replay started")

	peak := e.acct.TotalValue
	for _, day := range src.Days() {
		day = market.Day(day)
		if !start.IsZero() && !day.After(start) {
			continue
		}

		if err := e.Step(ctx, day, src.Watchlist(day)); err != nil {
			e.finish(&rec)
			return rec, err
		}

		if rec.FirstDay.IsZero() {
			rec.FirstDay = day
		}
		rec.LastDay = day
		rec.Days++

		total := e.acct.TotalValue
		if total > peak {
			peak = total
		}
		if peak > 0 {
			if dd := (peak - total) / peak; dd > rec.MaxDrawdown {
				rec.MaxDrawdown = dd
			}
		}
	}

	e.finish(&rec)
	if e.opts.AfterRun != nil {
		if err := e.opts.AfterRun(&rec); err != nil {
			return rec, fmt.Errorf("%s run %s: %w", e.acct.Name, rec.RunID, err)
		}
	}
	if err := e.journal.RecordRun(rec); err != nil {
		return rec, fmt.Errorf("%s run %s: %w", e.acct.Name, rec.RunID, err)
	}

	e.log.Info().
		Str("run_id", rec.RunID).
		Int("days", rec.Days).
		Float64("end_value", rec.EndValue).
		Str("profit_rate", journal.Percent(rec.ProfitRate)).
		Str("max_drawdown", journal.Percent(rec.MaxDrawdown)).
		Msg("replay finished")
	return rec, nil
}

func (e *Engine) finish(rec *journal.RunRecord) {
	rec.Finished = time.Now().UTC()
	rec.EndValue = e.acct.TotalValue
	rec.ProfitRate = e.acct.ProfitRate
	rec.Buys = e.counters.buys
	rec.Sells = e.counters.sells
	rec.Reductions = e.counters.reductions
	rec.Skipped = e.counters.skipped

	if rec.Skipped > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d lookups had no quote", rec.Skipped))
	}
	if held := e.acct.Codes(); len(held) > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("%d positions open at end", len(held)))
	}
	if reduced := e.acct.Reduced(); len(reduced) > 0 {
		rec.Notes = append(rec.Notes, fmt.Sprintf("running reduced: %v", reduced))
	}
}
