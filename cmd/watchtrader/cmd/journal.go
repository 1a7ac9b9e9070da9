package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/watchtrader/journal"
	"github.com/rustyeddy/watchtrader/market"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the replay journal",
	Long: `Query and display replay records from the SQLite journal.

Subcommands:
  days     - List the accounted days of an account
  holdings - List an account's holding rows on one day
  runs     - Print the recorded runs of an account as org-mode

Examples:
  watchtrader journal days mock
  watchtrader journal holdings real 2021-01-04
  watchtrader journal runs real`,
}

var journalDaysCmd = &cobra.Command{
	Use:   "days <account>",
	Short: "List accounted days",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDays,
}

var journalHoldingsCmd = &cobra.Command{
	Use:   "holdings <account> <YYYY-MM-DD>",
	Short: "List holding rows of one day",
	Args:  cobra.ExactArgs(2),
	RunE:  runJournalHoldings,
}

var journalRunsCmd = &cobra.Command{
	Use:   "runs <account>",
	Short: "Print recorded runs",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalRuns,
}

var journalDBPath string

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalDaysCmd)
	journalCmd.AddCommand(journalHoldingsCmd)
	journalCmd.AddCommand(journalRunsCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./watchtrader.sqlite", "path to SQLite journal DB")
}

func runJournalDays(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	days, err := j.ListDays(args[0])
	if err != nil {
		return fmt.Errorf("query days: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(w, "date\ttotal\tcash\tstock\tprofit\tMA20\t")
	for _, d := range days {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			market.DateKey(d.Date),
			journal.Money(d.TotalValue),
			journal.Money(d.CashValue),
			journal.Money(d.StockValue),
			journal.Percent(d.ProfitRate),
			journal.Money(d.Averages[20]),
		)
	}
	return w.Flush()
}

func runJournalHoldings(cmd *cobra.Command, args []string) error {
	day, err := market.ParseDate(args[1])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	recs, err := j.ListHoldings(args[0], day)
	if err != nil {
		return fmt.Errorf("query holdings: %w", err)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "code\tname\tvalue\topen\tclose\tbuy-in\tprofit\trate")
	for _, h := range recs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%s\t%s\n",
			h.Code, h.Name,
			journal.Money(h.CurrentValue),
			h.Open, h.Close, h.BuyInPrice,
			journal.Money(h.Profit),
			journal.Percent(h.ProfitRate),
		)
	}
	return w.Flush()
}

func runJournalRuns(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	runs, err := j.ListRuns(args[0])
	if err != nil {
		return fmt.Errorf("query runs: %w", err)
	}
	for _, r := range runs {
		s, err := r.Org()
		if err != nil {
			return err
		}
		fmt.Println(s)
	}
	return nil
}
