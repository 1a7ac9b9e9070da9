package journal

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rustyeddy/watchtrader/market"
)

func dayOrEmpty(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return market.DateKey(t)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(market.DateFormat, s)
}

// ListDays returns the day rows recorded for account in date order.
// Holding rows are not loaded; see ListHoldings.
func (j *SQLite) ListDays(account string) ([]DayRecord, error) {
	rows, err := j.db.Query(`
		SELECT date, total_value, cash_value, stock_value, profit_rate, averages
		FROM days
		WHERE account = ?
		ORDER BY date ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("list days %s: %w: %w", account, ErrLedgerUnreadable, err)
	}
	defer rows.Close()

	var out []DayRecord
	for rows.Next() {
		rec := DayRecord{Account: account}
		var day, averages string
		if err := rows.Scan(&day, &rec.TotalValue, &rec.CashValue, &rec.StockValue, &rec.ProfitRate, &averages); err != nil {
			return nil, err
		}
		if rec.Date, err = parseDay(day); err != nil {
			return nil, fmt.Errorf("day %q: %w: %w", day, ErrLedgerUnreadable, err)
		}
		if err := json.Unmarshal([]byte(averages), &rec.Averages); err != nil {
			return nil, fmt.Errorf("averages for %s: %w: %w", day, ErrLedgerUnreadable, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// ListHoldings returns the holding rows of one day in watchlist order.
func (j *SQLite) ListHoldings(account string, day time.Time) ([]HoldingRecord, error) {
	rows, err := j.db.Query(`
		SELECT code, name, current_value, opening_price, closing_price, buy_in_price, profit, profit_rate
		FROM holdings
		WHERE account = ? AND date = ?
		ORDER BY row_idx ASC`, account, market.DateKey(day))
	if err != nil {
		return nil, fmt.Errorf("list holdings %s: %w: %w", account, ErrLedgerUnreadable, err)
	}
	defer rows.Close()

	var out []HoldingRecord
	for rows.Next() {
		rec := HoldingRecord{Account: account, Date: market.Day(day)}
		if err := rows.Scan(
			&rec.Code,
			&rec.Name,
			&rec.CurrentValue,
			&rec.Open,
			&rec.Close,
			&rec.BuyInPrice,
			&rec.Profit,
			&rec.ProfitRate,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// LoadSnapshot returns the latest account snapshot and the day it was taken.
// A nil slice with no error means the account has never been committed.
func (j *SQLite) LoadSnapshot(account string) ([]byte, time.Time, error) {
	var (
		day  string
		data []byte
	)
	err := j.db.QueryRow(`SELECT date, data FROM snapshots WHERE account = ?`, account).Scan(&day, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("load snapshot %s: %w: %w", account, ErrLedgerUnreadable, err)
	}
	d, err := parseDay(day)
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("snapshot day %q: %w: %w", day, ErrLedgerUnreadable, err)
	}
	return data, d, nil
}

// ListRuns returns the runs recorded for account, oldest first.
func (j *SQLite) ListRuns(account string) ([]RunRecord, error) {
	rows, err := j.db.Query(`
		SELECT run_id, overlay, started, finished, first_day, last_day, days,
		       start_value, end_value, profit_rate, max_drawdown, buys, sells, reductions, skipped,
		       org_path, chart_png
		FROM runs
		WHERE account = ?
		ORDER BY run_id ASC`, account)
	if err != nil {
		return nil, fmt.Errorf("list runs %s: %w: %w", account, ErrLedgerUnreadable, err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		rec := RunRecord{Account: account}
		var first, last string
		if err := rows.Scan(
			&rec.RunID, &rec.Overlay, &rec.Started, &rec.Finished, &first, &last, &rec.Days,
			&rec.StartValue, &rec.EndValue, &rec.ProfitRate, &rec.MaxDrawdown,
			&rec.Buys, &rec.Sells, &rec.Reductions, &rec.Skipped,
			&rec.OrgPath, &rec.ChartPNG,
		); err != nil {
			return nil, err
		}
		if rec.FirstDay, err = parseDay(first); err != nil {
			return nil, err
		}
		if rec.LastDay, err = parseDay(last); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
