package portfolio

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"time"

	"github.com/rustyeddy/watchtrader/indicators"
	"github.com/rustyeddy/watchtrader/market"
)

// Options are the capital and averaging parameters of an account.
type Options struct {
	InitialValue   float64 `json:"initial_value"`
	PerStockAmount float64 `json:"per_stock_amount"`
	WindowSize     int     `json:"window_size"`
	Periods        []int   `json:"periods"`

	// AllowTopUp lets BuyIn add to an existing position instead of
	// failing with ErrDuplicateHolding.
	AllowTopUp bool `json:"allow_top_up"`
}

// DefaultOptions returns the stock replay defaults.
func DefaultOptions() Options {
	return Options{
		InitialValue:   2_000_000,
		PerStockAmount: 50_000,
		WindowSize:     60,
		Periods:        []int{5, 10, 20, 60},
	}
}

// DailyProfit is one accounted day. Entries are never changed once appended.
type DailyProfit struct {
	Date       time.Time `json:"date"`
	TotalValue float64   `json:"total_value"`
	ProfitRate float64   `json:"profit_rate"`
}

// Account is a cash balance plus at most one Position per code.
//
// It is not safe for concurrent use; the replay loop owns it.
type Account struct {
	Name string

	InitialValue float64
	CashValue    float64
	StockValue   float64
	TotalValue   float64
	ProfitRate   float64

	opts        Options
	holdings    map[string]*Position
	window      *indicators.Window
	averages    map[string]map[int]float64
	history     []DailyProfit
	reduced     map[string]bool
	currentDate time.Time
}

func NewAccount(name string, opts Options) *Account {
	return &Account{
		Name:         name,
		InitialValue: opts.InitialValue,
		CashValue:    opts.InitialValue,
		TotalValue:   opts.InitialValue,
		opts:         opts,
		holdings:     make(map[string]*Position),
		window:       indicators.NewWindow(opts.WindowSize, opts.InitialValue),
		averages:     make(map[string]map[int]float64),
		reduced:      make(map[string]bool),
	}
}

func (a *Account) Options() Options { return a.opts }

// Holds reports whether code is currently held.
func (a *Account) Holds(code string) bool {
	_, ok := a.holdings[code]
	return ok
}

func (a *Account) Holding(code string) (*Position, bool) {
	p, ok := a.holdings[code]
	return p, ok
}

// Codes lists held codes in ascending order.
func (a *Account) Codes() []string {
	codes := make([]string, 0, len(a.holdings))
	for code := range a.holdings {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// BuyIn opens a position worth the per-stock amount at price and takes the
// amount out of cash. With AllowTopUp, buying a held code adds the same
// amount to the existing position.
func (a *Account) BuyIn(stock market.Stock, day time.Time, price float64) (*Position, error) {
	amount := a.opts.PerStockAmount

	held, ok := a.holdings[stock.Code]
	if ok && !a.opts.AllowTopUp {
		return nil, fmt.Errorf("buy-in %s on %s: %w", stock, market.DateKey(day), ErrDuplicateHolding)
	}
	if a.CashValue < amount {
		return nil, fmt.Errorf("buy-in %s on %s: cash %.2f below %.2f: %w",
			stock, market.DateKey(day), a.CashValue, amount, ErrInsufficientCash)
	}

	if ok {
		if err := held.TopUp(price, amount); err != nil {
			return nil, err
		}
		a.CashValue -= amount
		return held, nil
	}

	p, err := OpenPosition(stock, day, price, amount)
	if err != nil {
		return nil, err
	}
	a.holdings[stock.Code] = p
	a.CashValue -= amount
	return p, nil
}

// SellOut sells ratio of a held position at the day's opening price and
// credits the proceeds to cash. The position is marked at the opening price
// and dropped once nothing is left.
func (a *Account) SellOut(ctx context.Context, quotes market.Oracle, code string, day time.Time, ratio float64) (float64, error) {
	p, ok := a.holdings[code]
	if !ok {
		return 0, fmt.Errorf("sell-out %s on %s: %w", code, market.DateKey(day), ErrNotHeld)
	}

	q, err := quotes.Lookup(ctx, code, day)
	if err != nil {
		return 0, fmt.Errorf("sell-out %s: %w", code, err)
	}

	proceeds, err := p.Sell(ratio, q.Open)
	if err != nil {
		return 0, err
	}
	a.CashValue += proceeds
	p.Mark(q.Open)

	if p.Closed() {
		delete(a.holdings, code)
	}
	return proceeds, nil
}

// Mark revalues one held position.
func (a *Account) Mark(code string, price float64) error {
	p, ok := a.holdings[code]
	if !ok {
		return fmt.Errorf("mark %s: %w", code, ErrNotHeld)
	}
	p.Mark(price)
	return nil
}

// MarkAll revalues every held position that has a price in closing.
func (a *Account) MarkAll(closing map[string]float64) {
	for code, p := range a.holdings {
		if price, ok := closing[code]; ok {
			p.Mark(price)
		}
	}
}

// ComputeDailyAccounting totals the account for day, appends it to the
// profit history and the averaging window, and records the day's moving
// averages. Period 1 is the day's total value.
func (a *Account) ComputeDailyAccounting(day time.Time) error {
	a.StockValue = 0
	for _, p := range a.holdings {
		a.StockValue += p.CurrentValue
	}
	a.TotalValue = a.CashValue + a.StockValue
	a.ProfitRate = (a.TotalValue - a.InitialValue) / a.InitialValue

	day = market.Day(day)
	a.history = append(a.history, DailyProfit{Date: day, TotalValue: a.TotalValue, ProfitRate: a.ProfitRate})
	a.window.Push(a.TotalValue)

	avg := map[int]float64{1: a.TotalValue}
	for _, period := range a.opts.Periods {
		v, err := a.window.Average(period)
		if err != nil {
			return fmt.Errorf("moving average MA%d: %w", period, err)
		}
		avg[period] = v
	}
	a.averages[market.DateKey(day)] = avg
	return nil
}

// MovingAverages returns the period → average row recorded for day.
func (a *Account) MovingAverages(day time.Time) (map[int]float64, bool) {
	avg, ok := a.averages[market.DateKey(day)]
	return avg, ok
}

func (a *Account) compareAverage(day time.Time, period int) (raw, avg float64, err error) {
	row, ok := a.averages[market.DateKey(day)]
	if !ok {
		return 0, 0, fmt.Errorf("%s %s: %w", a.Name, market.DateKey(day), ErrNoAverage)
	}
	avg, ok = row[period]
	if !ok {
		return 0, 0, fmt.Errorf("%s %s MA%d: %w", a.Name, market.DateKey(day), period, ErrNoAverage)
	}
	return row[1], avg, nil
}

// AboveMovingAverage reports whether day's total value is strictly above
// its period average.
func (a *Account) AboveMovingAverage(day time.Time, period int) (bool, error) {
	raw, avg, err := a.compareAverage(day, period)
	if err != nil {
		return false, err
	}
	return raw > avg, nil
}

// BelowMovingAverage reports whether day's total value is strictly below
// its period average.
func (a *Account) BelowMovingAverage(day time.Time, period int) (bool, error) {
	raw, avg, err := a.compareAverage(day, period)
	if err != nil {
		return false, err
	}
	return raw < avg, nil
}

// History returns the accounted days in order.
func (a *Account) History() []DailyProfit {
	return slices.Clone(a.history)
}

// Window returns the averaging window samples, oldest first.
func (a *Account) Window() []float64 {
	return a.window.Values()
}

func (a *Account) IsReduced(code string) bool { return a.reduced[code] }

func (a *Account) MarkReduced(code string) { a.reduced[code] = true }

// ClearReduced forgets every reduction flag. Position sizes are untouched.
func (a *Account) ClearReduced() { clear(a.reduced) }

// Reduced lists codes running at reduced size, sorted.
func (a *Account) Reduced() []string {
	codes := make([]string, 0, len(a.reduced))
	for code := range a.reduced {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// CurrentDate is the last day fully processed; zero before the first day.
func (a *Account) CurrentDate() time.Time { return a.currentDate }

func (a *Account) SetCurrentDate(day time.Time) { a.currentDate = market.Day(day) }

func (a *Account) String() string {
	return fmt.Sprintf("%s cur_date: %s, total_value: %.2f, cash_value: %.2f, stock_value: %.2f, profit_rate: %.2f%%",
		a.Name, market.DateKey(a.currentDate), a.TotalValue, a.CashValue, a.StockValue, 100*a.ProfitRate)
}
