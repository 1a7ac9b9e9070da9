package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/portfolio"
)

const testWatchlist = `date,code,name
2021/01/04,000001,PingAn Bank
2021/01/04,600000,SPD Bank
2021/01/05,000001,PingAn Bank
2021/01/06,600000,SPD Bank
`

const testPrices = `date,code,open,close
2021-01-04,000001,10,10.5
2021-01-04,600000,50,49
2021-01-05,000001,10.4,10.2
2021-01-05,600000,49,48
2021-01-06,000001,10.1,10.3
2021-01-06,600000,47,48.5
`

func TestAccountFile(t *testing.T) {
	assert.Equal(t, "out/equity-real.png", accountFile("out/equity.png", "real"))
	assert.Equal(t, "report-mock", accountFile("report", "mock"))
	assert.Equal(t, "", accountFile("", "mock"))
}

func TestSameOptions(t *testing.T) {
	opts := portfolio.DefaultOptions()
	assert.True(t, sameOptions(opts, portfolio.DefaultOptions()))

	other := portfolio.DefaultOptions()
	other.Periods = []int{5, 10, 20}
	assert.False(t, sameOptions(opts, other))

	other = portfolio.DefaultOptions()
	other.PerStockAmount = 10_000
	assert.False(t, sameOptions(opts, other))
}

func TestRunCommandResumes(t *testing.T) {
	dir := t.TempDir()
	wl := filepath.Join(dir, "watchlist.csv")
	prices := filepath.Join(dir, "prices.csv")
	db := filepath.Join(dir, "ledger.sqlite")
	require.NoError(t, os.WriteFile(wl, []byte(testWatchlist), 0644))
	require.NoError(t, os.WriteFile(prices, []byte(testPrices), 0644))

	args := []string{
		"run",
		"-w", wl,
		"-p", prices,
		"-d", db,
		"--env", filepath.Join(dir, "missing.env"),
		"--log-level", "error",
		"--chart", filepath.Join(dir, "equity.png"),
		"--org", filepath.Join(dir, "run.org"),
	}
	for i := 0; i < 2; i++ {
		rootCmd.SetArgs(args)
		require.NoError(t, rootCmd.Execute(), "pass %d", i)
	}

	j, err := journal.NewSQLite(db)
	require.NoError(t, err)
	defer j.Close()

	for _, account := range []string{mockAccount, realAccount} {
		days, err := j.ListDays(account)
		require.NoError(t, err)
		assert.Len(t, days, 3, account)

		runs, err := j.ListRuns(account)
		require.NoError(t, err)
		require.Len(t, runs, 2, account)
		assert.Equal(t, 3, runs[0].Days)
		assert.Equal(t, 0, runs[1].Days, "second pass resumes after the last day")
		assert.Equal(t, filepath.Join(dir, "run-"+account+".org"), runs[0].OrgPath, account)
		assert.Equal(t, filepath.Join(dir, "equity-"+account+".png"), runs[0].ChartPNG, account)
	}

	_, err = os.Stat(filepath.Join(dir, "equity-mock.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "run-real.org"))
	assert.NoError(t, err)
}
