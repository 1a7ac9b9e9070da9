package journal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/watchtrader/market"
)

const watchlistCSV = `date,code,name
2021/01/05,"600000.",SPD Bank
2021/01/05,000001,"PingAn Bank"
2021/01/04,000001,PingAn Bank
2021/01/05,600000,SPD Bank again
2021/01/06,,
`

func TestReadWatchlists(t *testing.T) {
	w, err := ReadWatchlists(strings.NewReader(watchlistCSV))
	require.NoError(t, err)

	days := w.Days()
	require.Len(t, days, 3)
	assert.True(t, days[0].Equal(day1), "days are sorted")
	assert.True(t, days[1].Equal(day2))

	assert.Equal(t, []market.Stock{{Code: "000001", Name: "PingAn Bank"}}, w.Watchlist(day1))
	assert.Equal(t, []market.Stock{
		{Code: "600000", Name: "SPD Bank"},
		{Code: "000001", Name: "PingAn Bank"},
	}, w.Watchlist(day2), "first row wins for duplicate codes")
	assert.Empty(t, w.Watchlist(days[2]), "empty trading day")
	assert.Empty(t, w.Watchlist(time.Date(2021, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestReadWatchlistsErrors(t *testing.T) {
	_, err := ReadWatchlists(strings.NewReader("2021/01/04,ST600,Bad\n"))
	assert.ErrorIs(t, err, ErrLedgerUnreadable)

	_, err = ReadWatchlists(strings.NewReader("someday,000001,x\n"))
	assert.ErrorIs(t, err, ErrLedgerUnreadable)

	_, err = LoadWatchlists(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorIs(t, err, ErrLedgerUnreadable)
}

func TestLoadWatchlists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "watch.csv")
	require.NoError(t, os.WriteFile(path, []byte(watchlistCSV), 0644))

	w, err := LoadWatchlists(path)
	require.NoError(t, err)
	assert.Len(t, w.Days(), 3)
}

func TestWatchlistsAdd(t *testing.T) {
	var w Watchlists
	w.Add(day2, market.Stock{Code: "600000"})
	w.Add(day1)
	w.Add(day2, market.Stock{Code: "000001"})

	days := w.Days()
	require.Len(t, days, 2)
	assert.True(t, days[0].Equal(day1))
	assert.Len(t, w.Watchlist(day2), 2)
	assert.Empty(t, w.Watchlist(day1))
}
