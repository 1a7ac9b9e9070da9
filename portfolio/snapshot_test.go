package portfolio

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/watchtrader/market"
)

var market600016 = market.Stock{Code: "600016", Name: "Minsheng Bank"}

func TestSnapshotRoundTrip(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	_, err = a.BuyIn(pufa, d1, 50)
	require.NoError(t, err)
	a.MarkAll(map[string]float64{"000001": 10.5, "600000": 49})
	require.NoError(t, a.ComputeDailyAccounting(d1))
	a.MarkReduced("600000")
	a.SetCurrentDate(d1)

	data, err := json.Marshal(a)
	require.NoError(t, err)

	b, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, a.Snapshot(), b.Snapshot())
	assert.Equal(t, []string{"000001", "600000"}, b.Codes())
	assert.True(t, b.IsReduced("600000"))
	assert.True(t, b.CurrentDate().Equal(d1))

	above, err := b.AboveMovingAverage(d1, 20)
	require.NoError(t, err)
	assert.True(t, above)

	// The restored account is independent of the source account.
	_, err = b.BuyIn(market600016, d2, 5)
	require.NoError(t, err)
	assert.False(t, a.Holds(market600016.Code))
}

func TestRestoreRejectsBadSnapshots(t *testing.T) {
	s := newTestAccount(t).Snapshot()
	s.Window = s.Window[:10]
	_, err := Restore(s)
	assert.Error(t, err)

	a := newTestAccount(t)
	_, err = a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	s = a.Snapshot()
	s.Holdings = append(s.Holdings, s.Holdings[0])
	_, err = Restore(s)
	assert.ErrorIs(t, err, ErrDuplicateHolding)

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestResetRestoresInPlace(t *testing.T) {
	a := newTestAccount(t)
	_, err := a.BuyIn(pingan, d1, 10)
	require.NoError(t, err)
	require.NoError(t, a.ComputeDailyAccounting(d1))
	a.SetCurrentDate(d1)
	before := a.Snapshot()

	_, err = a.SellOut(context.Background(), quotes(market.Quote{Date: d2, Code: "000001", Open: 11, Close: 11}), "000001", d2, 1)
	require.NoError(t, err)
	_, err = a.BuyIn(pufa, d2, 50)
	require.NoError(t, err)
	a.MarkReduced("600000")
	require.NoError(t, a.ComputeDailyAccounting(d2))
	a.SetCurrentDate(d2)

	require.NoError(t, a.Reset(before))
	assert.Equal(t, before, a.Snapshot())
	assert.Equal(t, []string{"000001"}, a.Codes())
	assert.Len(t, a.History(), 1)
	assert.Empty(t, a.Reduced())
	assert.True(t, a.CurrentDate().Equal(d1))

	bad := before
	bad.Window = bad.Window[:3]
	assert.Error(t, a.Reset(bad))
	assert.Equal(t, before, a.Snapshot(), "an invalid snapshot leaves the account alone")
}
