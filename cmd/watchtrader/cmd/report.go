package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <account>",
	Short: "Chart an account's recorded days",
	Long: `Read an account's accounted days from the SQLite journal and write the
equity curve with its MA5, MA10 and MA20 as a PNG chart and/or a CSV table.

Examples:
  watchtrader report real --chart real.png
  watchtrader report mock --csv mock.csv -d ./watchtrader.sqlite`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportDBPath string
	reportChart  string
	reportCSV    string
)

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().StringVarP(&reportDBPath, "db", "d", "./watchtrader.sqlite", "path to SQLite journal DB")
	reportCmd.Flags().StringVar(&reportChart, "chart", "", "write the equity chart PNG here")
	reportCmd.Flags().StringVar(&reportCSV, "csv", "", "write the chart rows as CSV here")
}

func runReport(cmd *cobra.Command, args []string) error {
	if reportChart == "" && reportCSV == "" {
		return fmt.Errorf("one of --chart or --csv is required")
	}
	account := args[0]

	j, err := journal.NewSQLite(reportDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	days, err := j.ListDays(account)
	if err != nil {
		return fmt.Errorf("query days: %w", err)
	}
	if len(days) == 0 {
		return fmt.Errorf("no accounted days for %s in %s", account, reportDBPath)
	}
	rows := report.RowsFromDays(days)

	if reportChart != "" {
		if err := report.SaveChart(reportChart, "Account "+account, rows); err != nil {
			return err
		}
		fmt.Printf("✓ Chart: %s\n", reportChart)
	}
	if reportCSV != "" {
		if err := report.SaveCSV(reportCSV, rows); err != nil {
			return err
		}
		fmt.Printf("✓ Rows: %s\n", reportCSV)
	}

	last := rows[len(rows)-1]
	fmt.Printf("  %d days, last %s: total %s, profit %s\n",
		len(rows), last.Date.Format("2006-01-02"), journal.Money(last.Total), journal.Percent(last.ProfitRate))
	return nil
}
