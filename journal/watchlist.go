package journal

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/rustyeddy/watchtrader/market"
)

// Watchlists holds the watchlist of every trading day in a ledger file.
type Watchlists struct {
	days  []time.Time
	lists map[string][]market.Stock
}

// LoadWatchlists reads a watchlist ledger:
//
//	date,code,name
//
// Rows sharing a date form that day's watchlist in file order. A row with
// an empty code declares a trading day with an empty watchlist. A header
// row ("date,...") is allowed. A code listed twice on one day keeps its
// first row.
func LoadWatchlists(path string) (*Watchlists, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrLedgerUnreadable, err)
	}
	defer f.Close()

	w, err := ReadWatchlists(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

// ReadWatchlists is LoadWatchlists over an arbitrary reader.
func ReadWatchlists(r io.Reader) (*Watchlists, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	w := &Watchlists{lists: make(map[string][]market.Stock)}
	seen := make(map[string]map[string]bool)

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLedgerUnreadable, err)
		}
		line++
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "date") {
			continue
		}

		day, err := market.ParseDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %w", line, ErrLedgerUnreadable, err)
		}
		key := market.DateKey(day)
		if _, ok := w.lists[key]; !ok {
			w.lists[key] = []market.Stock{}
			w.days = append(w.days, day)
			seen[key] = make(map[string]bool)
		}

		var code, name string
		if len(row) > 1 {
			code = market.CleanField(row[1])
		}
		if len(row) > 2 {
			name = market.CleanField(row[2])
		}
		if code == "" {
			continue
		}
		if !market.ValidCode(code) {
			return nil, fmt.Errorf("line %d: bad stock code %q: %w", line, row[1], ErrLedgerUnreadable)
		}
		if seen[key][code] {
			continue
		}
		seen[key][code] = true
		w.lists[key] = append(w.lists[key], market.Stock{Code: code, Name: name})
	}

	sort.Slice(w.days, func(i, j int) bool { return w.days[i].Before(w.days[j]) })
	return w, nil
}

// Days lists the trading days in ascending order.
func (w *Watchlists) Days() []time.Time {
	return append([]time.Time(nil), w.days...)
}

// Watchlist returns the stocks watched on day, in ledger order.
func (w *Watchlists) Watchlist(day time.Time) []market.Stock {
	return append([]market.Stock(nil), w.lists[market.DateKey(day)]...)
}

// Add appends a day's watchlist; used to build ledgers in memory.
func (w *Watchlists) Add(day time.Time, stocks ...market.Stock) {
	if w.lists == nil {
		w.lists = make(map[string][]market.Stock)
	}
	day = market.Day(day)
	key := market.DateKey(day)
	if _, ok := w.lists[key]; !ok {
		w.days = append(w.days, day)
		sort.Slice(w.days, func(i, j int) bool { return w.days[i].Before(w.days[j]) })
	}
	w.lists[key] = append(w.lists[key], stocks...)
}
