package portfolio

import (
	"fmt"
	"time"

	"github.com/rustyeddy/watchtrader/market"
)

// Position is one open holding. Quantity may be fractional.
//
// Realized accumulates the cash returned by sells, so Profit is the
// position's whole gain: value still held plus cash taken out, minus all
// capital put in.
type Position struct {
	Stock    market.Stock `json:"stock"`
	OpenedOn time.Time    `json:"opened_on"`

	EntryPrice   float64 `json:"entry_price"` // capital-weighted average cost per unit
	Quantity     float64 `json:"quantity"`
	CostBasis    float64 `json:"cost_basis"`
	CurrentValue float64 `json:"current_value"`
	Realized     float64 `json:"realized"`

	Profit     float64 `json:"profit"`
	ProfitRate float64 `json:"profit_rate"`
}

// OpenPosition buys capital worth of stock at price.
func OpenPosition(stock market.Stock, day time.Time, price, capital float64) (*Position, error) {
	if price <= 0 {
		return nil, fmt.Errorf("open %s at %.4f: %w", stock.Code, price, ErrInvalidPrice)
	}
	if capital <= 0 {
		return nil, fmt.Errorf("open %s: capital must be positive, got %.2f", stock.Code, capital)
	}
	return &Position{
		Stock:        stock,
		OpenedOn:     market.Day(day),
		EntryPrice:   price,
		Quantity:     capital / price,
		CostBasis:    capital,
		CurrentValue: capital,
	}, nil
}

// TopUp adds capital at price and re-averages the entry price over all
// capital committed so far.
func (p *Position) TopUp(price, capital float64) error {
	if price <= 0 {
		return fmt.Errorf("top up %s at %.4f: %w", p.Stock.Code, price, ErrInvalidPrice)
	}
	if capital <= 0 {
		return fmt.Errorf("top up %s: capital must be positive, got %.2f", p.Stock.Code, capital)
	}

	p.EntryPrice = (p.CostBasis + capital) / (p.CostBasis/p.EntryPrice + capital/price)
	p.CostBasis += capital
	p.Quantity += capital / price
	p.CurrentValue += capital
	return nil
}

// Mark revalues the position at price.
func (p *Position) Mark(price float64) {
	p.CurrentValue = p.Quantity * price
	p.Profit = p.CurrentValue - p.CostBasis + p.Realized
	if p.CostBasis != 0 {
		p.ProfitRate = p.Profit / p.CostBasis
	}
}

// Sell sells ratio of the current quantity at price and returns the cash
// raised. A ratio of 1 leaves exactly zero quantity.
func (p *Position) Sell(ratio, price float64) (float64, error) {
	if ratio <= 0 || ratio > 1 {
		return 0, fmt.Errorf("sell %s ratio %.4f: %w", p.Stock.Code, ratio, ErrInvalidRatio)
	}
	if price <= 0 {
		return 0, fmt.Errorf("sell %s at %.4f: %w", p.Stock.Code, price, ErrInvalidPrice)
	}

	proceeds := p.Quantity * ratio * price
	if ratio == 1 {
		p.Quantity = 0
	} else {
		p.Quantity *= 1 - ratio
	}
	p.CurrentValue = p.Quantity * price
	p.Realized += proceeds
	return proceeds, nil
}

// Closed reports whether nothing is left of the position.
func (p *Position) Closed() bool {
	return p.Quantity == 0
}

func (p *Position) String() string {
	return fmt.Sprintf("stock: %s, entry: %.2f, cost: %.2f, value: %.2f, realized: %.2f, profit: %.2f, rate: %.2f%%",
		p.Stock, p.EntryPrice, p.CostBasis, p.CurrentValue, p.Realized, p.Profit, 100*p.ProfitRate)
}
