package journal

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	day2 = time.Date(2021, 1, 5, 0, 0, 0, 0, time.UTC)
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func sampleDay(account string, day time.Time) DayRecord {
	return DayRecord{
		Account:    account,
		Date:       day,
		TotalValue: 2_010_000,
		CashValue:  1_950_000,
		StockValue: 60_000,
		ProfitRate: 0.005,
		Averages:   map[int]float64{1: 2_010_000, 5: 2_002_000, 20: 2_000_500},
		Holdings: []HoldingRecord{
			{Code: "600000", Name: "SPD Bank", CurrentValue: 35_000, Open: 10, Close: 10.5, BuyInPrice: 10, Profit: 5_000, ProfitRate: 0.1},
			{Code: "000001", Name: "PingAn Bank", CurrentValue: 25_000, Open: 20, Close: 20, BuyInPrice: 20, Profit: 0, ProfitRate: 0},
		},
		Snapshot: []byte(`{"name":"` + account + `"}`),
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table'`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	for _, table := range []string{"days", "holdings", "snapshots", "runs"} {
		assert.True(t, found[table], table)
	}
}

func TestSQLiteCommitDay(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	require.NoError(t, j.CommitDay(sampleDay("mock", day1)))

	days, err := j.ListDays("mock")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.True(t, days[0].Date.Equal(day1))
	assert.Equal(t, 2_010_000.0, days[0].TotalValue)
	assert.Equal(t, 1_950_000.0, days[0].CashValue)
	assert.Equal(t, 0.005, days[0].ProfitRate)
	assert.Equal(t, 2_002_000.0, days[0].Averages[5])

	holdings, err := j.ListHoldings("mock", day1)
	require.NoError(t, err)
	require.Len(t, holdings, 2)
	assert.Equal(t, "600000", holdings[0].Code, "watchlist order is kept")
	assert.Equal(t, "SPD Bank", holdings[0].Name)
	assert.Equal(t, 0.1, holdings[0].ProfitRate)

	data, at, err := j.LoadSnapshot("mock")
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"mock"}`, string(data))
	assert.True(t, at.Equal(day1))

	require.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var pct string
	var count int
	require.NoError(t, db.QueryRow(`SELECT profit_rate_pct, row_count FROM days LIMIT 1`).Scan(&pct, &count))
	assert.Equal(t, "0.50%", pct)
	assert.Equal(t, 2, count)

	require.NoError(t, db.QueryRow(`SELECT profit_rate_pct FROM holdings WHERE code = '600000'`).Scan(&pct))
	assert.Equal(t, "10.00%", pct)
}

func TestSQLiteCommitDayReplaces(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	require.NoError(t, j.CommitDay(sampleDay("real", day1)))

	again := sampleDay("real", day1)
	again.TotalValue = 1_990_000
	again.Holdings = again.Holdings[:1]
	require.NoError(t, j.CommitDay(again))

	days, err := j.ListDays("real")
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 1_990_000.0, days[0].TotalValue)

	holdings, err := j.ListHoldings("real", day1)
	require.NoError(t, err)
	assert.Len(t, holdings, 1)
}

func TestSQLiteAccountsAreSeparate(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	require.NoError(t, j.CommitDay(sampleDay("mock", day1)))
	require.NoError(t, j.CommitDay(sampleDay("mock", day2)))
	noSnapshot := sampleDay("real", day1)
	noSnapshot.Snapshot = nil
	require.NoError(t, j.CommitDay(noSnapshot))

	mock, err := j.ListDays("mock")
	require.NoError(t, err)
	assert.Len(t, mock, 2)
	assert.True(t, mock[1].Date.Equal(day2))

	_, at, err := j.LoadSnapshot("mock")
	require.NoError(t, err)
	assert.True(t, at.Equal(day2))

	data, at, err := j.LoadSnapshot("real")
	require.NoError(t, err)
	assert.Nil(t, data)
	assert.True(t, at.IsZero())
}

func TestSQLiteRecordRun(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := RunRecord{
		RunID:       "01HZZZZZZZZZZZZZZZZZZZZZZZ",
		Account:     "real",
		Overlay:     true,
		Started:     started,
		Finished:    started.Add(time.Minute),
		FirstDay:    day1,
		LastDay:     day2,
		Days:        2,
		StartValue:  2_000_000,
		EndValue:    2_020_000,
		ProfitRate:  0.01,
		MaxDrawdown: 0.002,
		Buys:        3,
		Sells:       1,
		Reductions:  2,
		Skipped:     1,
		OrgPath:     "run-real.org",
	}
	require.NoError(t, j.RecordRun(rec))

	runs, err := j.ListRuns("real")
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, rec.RunID, got.RunID)
	assert.True(t, got.Overlay)
	assert.True(t, got.Started.Equal(started))
	assert.True(t, got.FirstDay.Equal(day1))
	assert.True(t, got.LastDay.Equal(day2))
	assert.Equal(t, 2, got.Days)
	assert.Equal(t, 2_020_000.0, got.EndValue)
	assert.Equal(t, 2, got.Reductions)
	assert.Equal(t, "run-real.org", got.OrgPath)
	assert.Empty(t, got.ChartPNG)

	none, err := j.ListRuns("mock")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewSQLiteBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewSQLite(filepath.Join(t.TempDir(), "missing", "dir", "x.db"))
	assert.ErrorIs(t, err, ErrLedgerUnwritable)
}
