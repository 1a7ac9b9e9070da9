package portfolio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/watchtrader/market"
)

var (
	d1 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	d2 = time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
	d3 = time.Date(2021, 1, 6, 0, 0, 0, 0, time.UTC)

	pufa = market.Stock{Code: "600000", Name: "SPD Bank"}
)

func newTestAccount(t *testing.T) *Account {
	t.Helper()
	return NewAccount("test", DefaultOptions())
}

func quotes(qs ...market.Quote) *market.MapOracle {
	o := market.NewMapOracle()
	for _, q := range qs {
		o.Set(q)
	}
	return o
}

func TestNewAccount(t *testing.T) {
	a := newTestAccount(t)
	assert.Equal(t, 2_000_000.0, a.CashValue)
	assert.Equal(t, 2_000_000.0, a.TotalValue)
	assert.Empty(t, a.Codes())
	assert.True(t, a.CurrentDate().IsZero())
	assert.Len(t, a.Window(), 60)
}

func TestBuyInScenario(t *testing.T) {
	a := newTestAccount(t)

	p, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)

	assert.Equal(t, 5000.0, p.Quantity)
	assert.Equal(t, 50_000.0, p.CostBasis)
	assert.Equal(t, 10.0, p.EntryPrice)
	assert.Equal(t, 1_950_000.0, a.CashValue)
	assert.True(t, a.Holds("000001"))
}

func TestSellOutScenario(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)

	o := quotes(market.Quote{Date: d2, Code: "000001", Open: 12, Close: 12.5})
	cash, err := a.SellOut(context.Background(), o, "000001", d2, 1)
	require.NoError(t, err)

	assert.InDelta(t, 60_000.0, cash, 1e-9)
	assert.InDelta(t, 2_010_000.0, a.CashValue, 1e-9)
	assert.False(t, a.Holds("000001"))
	assert.Empty(t, a.Codes())
}

func TestBuyInErrors(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)

	_, err = a.BuyIn(pingan, d2, 11)
	assert.ErrorIs(t, err, ErrDuplicateHolding)
	assert.Equal(t, 1_950_000.0, a.CashValue)

	opts := DefaultOptions()
	opts.InitialValue = 60_000
	small := NewAccount("small", opts)
	_, err = small.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	_, err = small.BuyIn(pufa, d1, 10)
	assert.ErrorIs(t, err, ErrInsufficientCash)
	assert.False(t, small.Holds("600000"))

	_, err = a.BuyIn(pufa, d1, 0)
	assert.ErrorIs(t, err, ErrInvalidPrice)
	assert.Equal(t, 1_950_000.0, a.CashValue, "failed buy-in must not touch cash")
}

func TestBuyInTopUp(t *testing.T) {
	opts := DefaultOptions()
	opts.AllowTopUp = true
	a := NewAccount("topup", opts)

	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	p, err := a.BuyIn(pingan, d2, 20)
	require.NoError(t, err)

	assert.Len(t, a.Codes(), 1)
	assert.Equal(t, 100_000.0, p.CostBasis)
	assert.InDelta(t, 7500.0, p.Quantity, 1e-9)
	assert.Equal(t, 1_900_000.0, a.CashValue)
}

func TestSellOutErrors(t *testing.T) {
	a := newTestAccount(t)
	ctx := context.Background()

	_, err := a.SellOut(ctx, quotes(), "000001", d1, 1)
	assert.ErrorIs(t, err, ErrNotHeld)

	_, err = a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)

	_, err = a.SellOut(ctx, quotes(), "000001", d2, 1)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
	assert.True(t, a.Holds("000001"), "position is left as-is")

	o := quotes(market.Quote{Date: d2, Code: "000001", Open: 12, Close: 12})
	_, err = a.SellOut(ctx, o, "000001", d2, 2)
	assert.ErrorIs(t, err, ErrInvalidRatio)
	assert.Equal(t, 1_950_000.0, a.CashValue)
}

func TestPartialSellKeepsPosition(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pufa, d1, 50)
	require.NoError(t, err)
	p, _ := a.Holding("600000")
	require.Equal(t, 1000.0, p.Quantity)

	o := quotes(market.Quote{Date: d2, Code: "600000", Open: 40, Close: 42})
	cash, err := a.SellOut(context.Background(), o, "600000", d2, 0.5)
	require.NoError(t, err)

	assert.InDelta(t, 20_000.0, cash, 1e-9)
	assert.Equal(t, 500.0, p.Quantity)
	assert.True(t, a.Holds("600000"))
	assert.InDelta(t, 20_000.0, p.CurrentValue, 1e-9, "marked at the opening price")
}

func TestMarkAll(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	_, err = a.BuyIn(pufa, d1, 50)
	require.NoError(t, err)

	a.MarkAll(map[string]float64{"000001": 11, "999999": 5})

	p1, _ := a.Holding("000001")
	p2, _ := a.Holding("600000")
	assert.InDelta(t, 55_000.0, p1.CurrentValue, 1e-9)
	assert.InDelta(t, 50_000.0, p2.CurrentValue, 1e-9, "unpriced holdings keep their value")

	assert.ErrorIs(t, a.Mark("999999", 1), ErrNotHeld)
}

func TestCapitalConservation(t *testing.T) {
	a := newTestAccount(t)
	ctx := context.Background()
	o := quotes(
		market.Quote{Date: d2, Code: "000001", Open: 9.5, Close: 9.7},
		market.Quote{Date: d3, Code: "600000", Open: 61, Close: 63},
	)

	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	_, err = a.BuyIn(pufa, d1, 50)
	require.NoError(t, err)
	a.MarkAll(map[string]float64{"000001": 10.3, "600000": 52})
	require.NoError(t, a.ComputeDailyAccounting(d1))
	assert.InDelta(t, a.TotalValue, a.CashValue+a.StockValue, 1e-6)

	_, err = a.SellOut(ctx, o, "000001", d2, 1)
	require.NoError(t, err)
	require.NoError(t, a.ComputeDailyAccounting(d2))
	assert.InDelta(t, a.TotalValue, a.CashValue+a.StockValue, 1e-6)

	_, err = a.SellOut(ctx, o, "600000", d3, 0.5)
	require.NoError(t, err)
	require.NoError(t, a.Mark("600000", 63))
	require.NoError(t, a.ComputeDailyAccounting(d3))
	assert.InDelta(t, a.TotalValue, a.CashValue+a.StockValue, 1e-6)

	// 1,900,000 + 47,500 + 30,500 cash, 500 units at 63 held.
	assert.InDelta(t, 1_978_000.0, a.CashValue, 1e-6)
	assert.InDelta(t, 31_500.0, a.StockValue, 1e-6)
	assert.InDelta(t, (2_009_500.0-2_000_000.0)/2_000_000.0, a.ProfitRate, 1e-12)
	assert.Len(t, a.History(), 3)
}

func TestMovingAverages(t *testing.T) {
	a := newTestAccount(t)
	days := []time.Time{d1, d2, d3}
	totals := []float64{2_100_000, 1_900_000, 2_300_000}

	for i, day := range days {
		a.CashValue = totals[i]
		require.NoError(t, a.ComputeDailyAccounting(day))
	}

	avg, ok := a.MovingAverages(d3)
	require.True(t, ok)
	assert.Equal(t, 2_300_000.0, avg[1])
	assert.InDelta(t, (2*2_000_000.0+2_100_000+1_900_000+2_300_000)/5, avg[5], 1e-6)
	assert.InDelta(t, (57*2_000_000.0+2_100_000+1_900_000+2_300_000)/60, avg[60], 1e-6)
	assert.Len(t, avg, 5)

	above, err := a.AboveMovingAverage(d3, 20)
	require.NoError(t, err)
	assert.True(t, above)

	below, err := a.BelowMovingAverage(d2, 20)
	require.NoError(t, err)
	assert.True(t, below)

	_, err = a.BelowMovingAverage(d3.AddDate(0, 0, 1), 20)
	assert.ErrorIs(t, err, ErrNoAverage)
	_, err = a.AboveMovingAverage(d3, 7)
	assert.ErrorIs(t, err, ErrNoAverage)
}

func TestReducedSet(t *testing.T) {
	a := newTestAccount(t)
	a.MarkReduced("600000")
	a.MarkReduced("000001")
	assert.True(t, a.IsReduced("600000"))
	assert.Equal(t, []string{"000001", "600000"}, a.Reduced())

	a.ClearReduced()
	assert.Empty(t, a.Reduced())
	assert.False(t, a.IsReduced("600000"))
}
