// Package journal is the ledger store: it reads daily watchlists and
// records what the replay computed for each day.
package journal

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrLedgerUnreadable wraps failures reading watchlist input.
	ErrLedgerUnreadable = errors.New("ledger unreadable")

	// ErrLedgerUnwritable wraps failures committing replay output.
	ErrLedgerUnwritable = errors.New("ledger unwritable")
)

// HoldingRecord is one watchlist row's computed values for a day.
type HoldingRecord struct {
	Account      string
	Date         time.Time
	Code         string
	Name         string
	CurrentValue float64
	Open         float64
	Close        float64
	BuyInPrice   float64
	Profit       float64
	ProfitRate   float64
}

// DayRecord is the aggregate for one accounted day together with the
// holding rows it spans. Snapshot, when set, is the account state after
// the day and is stored with the day.
type DayRecord struct {
	Account    string
	Date       time.Time
	TotalValue float64
	CashValue  float64
	StockValue float64
	ProfitRate float64
	Averages   map[int]float64
	Holdings   []HoldingRecord
	Snapshot   []byte
}

// Rows is the number of watchlist rows the day spans.
func (d DayRecord) Rows() int { return len(d.Holdings) }

// RunRecord summarizes one replay run of an account.
type RunRecord struct {
	RunID       string
	Account     string
	Overlay     bool
	Started     time.Time
	Finished    time.Time
	FirstDay    time.Time
	LastDay     time.Time
	Days        int
	StartValue  float64
	EndValue    float64
	ProfitRate  float64
	MaxDrawdown float64
	Buys        int
	Sells       int
	Reductions  int
	Skipped     int

	OrgPath  string
	ChartPNG string
	Notes    []string
}

// Journal receives replay output. CommitDay is called once per day after
// the day's step has fully succeeded; a day is either wholly recorded or
// not at all.
type Journal interface {
	CommitDay(DayRecord) error
	RecordRun(RunRecord) error
	Close() error
}

var hundred = decimal.NewFromInt(100)

// Percent formats a rate as a percentage with two decimals, e.g. 0.1234 → "12.34%".
func Percent(rate float64) string {
	return decimal.NewFromFloat(rate).Mul(hundred).StringFixed(2) + "%"
}

// Money formats an amount with two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}
