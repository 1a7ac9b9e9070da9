package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/watchtrader/market"
)

// SQLite is a Journal backed by a SQLite database. Several accounts can
// share one database; every row is keyed by account name.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrLedgerUnwritable, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema in %s: %w: %w", path, ErrLedgerUnwritable, err)
	}

	return &SQLite{db: db}, nil
}

// CommitDay writes the day row, its holding rows and the optional account
// snapshot in one transaction. Re-committing a day replaces it.
func (j *SQLite) CommitDay(d DayRecord) (err error) {
	day := market.DateKey(d.Date)

	averages, err := json.Marshal(d.Averages)
	if err != nil {
		return fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}

	tx, err := j.db.Begin()
	if err != nil {
		return fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
			err = fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
		}
	}()

	if _, err = tx.Exec(`
		INSERT OR REPLACE INTO days
		(account, date, total_value, cash_value, stock_value, profit_rate, profit_rate_pct, row_count, averages)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.Account, day, d.TotalValue, d.CashValue, d.StockValue,
		d.ProfitRate, Percent(d.ProfitRate), d.Rows(), string(averages),
	); err != nil {
		return err
	}

	if _, err = tx.Exec(`DELETE FROM holdings WHERE account = ? AND date = ?`, d.Account, day); err != nil {
		return err
	}
	for i, h := range d.Holdings {
		if _, err = tx.Exec(`
			INSERT INTO holdings
			(account, date, row_idx, code, name, current_value, opening_price, closing_price, buy_in_price, profit, profit_rate, profit_rate_pct)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.Account, day, i, h.Code, h.Name, h.CurrentValue, h.Open, h.Close,
			h.BuyInPrice, h.Profit, h.ProfitRate, Percent(h.ProfitRate),
		); err != nil {
			return err
		}
	}

	if d.Snapshot != nil {
		if _, err = tx.Exec(`
			INSERT OR REPLACE INTO snapshots (account, date, data)
			VALUES (?, ?, ?)`,
			d.Account, day, d.Snapshot,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (j *SQLite) RecordRun(r RunRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO runs
		(run_id, account, overlay, started, finished, first_day, last_day, days,
		 start_value, end_value, profit_rate, max_drawdown, buys, sells, reductions, skipped,
		 org_path, chart_png)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Account, r.Overlay, r.Started, r.Finished,
		dayOrEmpty(r.FirstDay), dayOrEmpty(r.LastDay), r.Days,
		r.StartValue, r.EndValue, r.ProfitRate, r.MaxDrawdown,
		r.Buys, r.Sells, r.Reductions, r.Skipped,
		r.OrgPath, r.ChartPNG,
	)
	if err != nil {
		return fmt.Errorf("record run %s: %w: %w", r.RunID, ErrLedgerUnwritable, err)
	}
	return nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
