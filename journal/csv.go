package journal

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/rustyeddy/watchtrader/market"
)

var (
	holdingsHeader = []string{"account", "date", "code", "name", "current_value", "opening_price", "closing_price", "buy_in_price", "profit", "profit_rate"}
	daysHeader     = []string{"account", "date", "total_value", "cash_value", "stock_value", "profit_rate", "rows"}
)

// CSVJournal appends holding and day rows to two CSV files. Snapshots and
// run records are not kept; a CSV ledger cannot resume a replay.
//
// The store is best-effort: the two files are not written atomically. A
// day's rows are encoded in full before anything is written, and the day
// row goes first with its holding row count, so a day row is never missing
// for holding rows on disk.
type CSVJournal struct {
	hf, df *os.File
}

// NewCSV opens both files for appending, writing headers to empty files.
func NewCSV(holdingsPath, daysPath string) (*CSVJournal, error) {
	hf, err := openAppend(holdingsPath, holdingsHeader)
	if err != nil {
		return nil, err
	}
	df, err := openAppend(daysPath, daysHeader)
	if err != nil {
		_ = hf.Close()
		return nil, err
	}
	return &CSVJournal{hf: hf, df: df}, nil
}

func openAppend(path string, header []string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", path, ErrLedgerUnwritable, err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat %s: %w: %w", path, ErrLedgerUnwritable, err)
	}

	if info.Size() == 0 {
		data, err := encodeCSV([][]string{header})
		if err == nil {
			_, err = f.Write(data)
		}
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write %s header: %w: %w", path, ErrLedgerUnwritable, err)
		}
	}
	return f, nil
}

func (j *CSVJournal) CommitDay(d DayRecord) error {
	day := market.DateKey(d.Date)

	holdings := make([][]string, 0, len(d.Holdings))
	for _, h := range d.Holdings {
		holdings = append(holdings, []string{
			d.Account,
			day,
			h.Code,
			h.Name,
			f(h.CurrentValue),
			f(h.Open),
			f(h.Close),
			f(h.BuyInPrice),
			f(h.Profit),
			Percent(h.ProfitRate),
		})
	}
	hdata, err := encodeCSV(holdings)
	if err != nil {
		return fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}
	ddata, err := encodeCSV([][]string{{
		d.Account,
		day,
		f(d.TotalValue),
		f(d.CashValue),
		f(d.StockValue),
		Percent(d.ProfitRate),
		strconv.Itoa(d.Rows()),
	}})
	if err != nil {
		return fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}

	if _, err := j.df.Write(ddata); err != nil {
		return fmt.Errorf("commit %s %s: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}
	if _, err := j.hf.Write(hdata); err != nil {
		return fmt.Errorf("commit %s %s holdings: %w: %w", d.Account, day, ErrLedgerUnwritable, err)
	}
	return nil
}

func (j *CSVJournal) RecordRun(RunRecord) error {
	return nil
}

func (j *CSVJournal) Close() error {
	herr := j.hf.Close()
	derr := j.df.Close()
	if herr != nil {
		return herr
	}
	return derr
}

func encodeCSV(records [][]string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
