package portfolio

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/watchtrader/indicators"
)

// Snapshot is the serializable state of an Account, used to resume a
// replay from its CurrentDate.
type Snapshot struct {
	Name         string                     `json:"name"`
	Options      Options                    `json:"options"`
	InitialValue float64                    `json:"initial_value"`
	CashValue    float64                    `json:"cash_value"`
	StockValue   float64                    `json:"stock_value"`
	TotalValue   float64                    `json:"total_value"`
	ProfitRate   float64                    `json:"profit_rate"`
	Holdings     []Position                 `json:"holdings"`
	Window       []float64                  `json:"window"`
	Averages     map[string]map[int]float64 `json:"averages"`
	History      []DailyProfit              `json:"history"`
	Reduced      []string                   `json:"reduced"`
	CurrentDate  time.Time                  `json:"current_date"`
}

// Snapshot copies the account state.
func (a *Account) Snapshot() Snapshot {
	s := Snapshot{
		Name:         a.Name,
		Options:      a.opts,
		InitialValue: a.InitialValue,
		CashValue:    a.CashValue,
		StockValue:   a.StockValue,
		TotalValue:   a.TotalValue,
		ProfitRate:   a.ProfitRate,
		Window:       a.window.Values(),
		Averages:     make(map[string]map[int]float64, len(a.averages)),
		History:      a.History(),
		Reduced:      a.Reduced(),
		CurrentDate:  a.currentDate,
	}
	for _, code := range a.Codes() {
		s.Holdings = append(s.Holdings, *a.holdings[code])
	}
	for day, row := range a.averages {
		cp := make(map[int]float64, len(row))
		for k, v := range row {
			cp[k] = v
		}
		s.Averages[day] = cp
	}
	return s
}

// MarshalJSON encodes the account as its Snapshot.
func (a *Account) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.Snapshot())
}

// Restore rebuilds an account from a snapshot.
func Restore(s Snapshot) (*Account, error) {
	a := &Account{}
	if err := a.Reset(s); err != nil {
		return nil, err
	}
	return a, nil
}

// Reset replaces the account state with s. The account is left unchanged
// when s is invalid.
func (a *Account) Reset(s Snapshot) error {
	size := s.Options.WindowSize
	if size <= 0 {
		size = 1 // as in NewWindow
	}
	w, err := indicators.RestoreWindow(size, s.Window)
	if err != nil {
		return fmt.Errorf("restore %s: %w", s.Name, err)
	}
	holdings := make(map[string]*Position, len(s.Holdings))
	for i := range s.Holdings {
		p := s.Holdings[i]
		if _, dup := holdings[p.Stock.Code]; dup {
			return fmt.Errorf("restore %s: %s: %w", s.Name, p.Stock.Code, ErrDuplicateHolding)
		}
		holdings[p.Stock.Code] = &p
	}
	averages := make(map[string]map[int]float64, len(s.Averages))
	for day, row := range s.Averages {
		cp := make(map[int]float64, len(row))
		for k, v := range row {
			cp[k] = v
		}
		averages[day] = cp
	}
	reduced := make(map[string]bool, len(s.Reduced))
	for _, code := range s.Reduced {
		reduced[code] = true
	}

	*a = Account{
		Name:         s.Name,
		InitialValue: s.InitialValue,
		CashValue:    s.CashValue,
		StockValue:   s.StockValue,
		TotalValue:   s.TotalValue,
		ProfitRate:   s.ProfitRate,
		opts:         s.Options,
		holdings:     holdings,
		window:       w,
		averages:     averages,
		history:      append([]DailyProfit(nil), s.History...),
		reduced:      reduced,
		currentDate:  s.CurrentDate,
	}
	return nil
}

// Decode parses a JSON snapshot and restores the account.
func Decode(data []byte) (*Account, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return Restore(s)
}
