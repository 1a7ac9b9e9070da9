// Package report turns accounted days into chart rows, a CSV table and an
// equity curve PNG. Nothing here feeds back into a replay.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/market"
	"github.com/rustyeddy/watchtrader/portfolio"
)

// ChartRow is one accounted day. A moving average missing from the
// account's configured periods is zero.
type ChartRow struct {
	Date       time.Time
	Total      float64
	MA5        float64
	MA10       float64
	MA20       float64
	ProfitRate float64
}

// Rows lists the account's accounted days in order.
func Rows(acct *portfolio.Account) []ChartRow {
	history := acct.History()
	rows := make([]ChartRow, 0, len(history))
	for _, h := range history {
		avg, _ := acct.MovingAverages(h.Date)
		rows = append(rows, row(h.Date, h.TotalValue, h.ProfitRate, avg))
	}
	return rows
}

// RowsFromDays builds rows from days read back from a ledger.
func RowsFromDays(days []journal.DayRecord) []ChartRow {
	rows := make([]ChartRow, 0, len(days))
	for _, d := range days {
		rows = append(rows, row(d.Date, d.TotalValue, d.ProfitRate, d.Averages))
	}
	return rows
}

func row(day time.Time, total, rate float64, avg map[int]float64) ChartRow {
	return ChartRow{
		Date:       day,
		Total:      total,
		MA5:        avg[5],
		MA10:       avg[10],
		MA20:       avg[20],
		ProfitRate: rate,
	}
}

var csvHeader = []string{"date", "total_value", "ma5", "ma10", "ma20", "profit_rate"}

// WriteCSV writes rows with a header line.
func WriteCSV(w io.Writer, rows []ChartRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		err := cw.Write([]string{
			market.DateKey(r.Date),
			journal.Money(r.Total),
			journal.Money(r.MA5),
			journal.Money(r.MA10),
			journal.Money(r.MA20),
			journal.Percent(r.ProfitRate),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// SaveCSV writes rows to path.
func SaveCSV(path string, rows []ChartRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, rows); err != nil {
		_ = f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
