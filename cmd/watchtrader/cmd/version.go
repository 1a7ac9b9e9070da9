package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

const version = "0.3.0"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the watchtrader CLI.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("watchtrader version %s\n", version)
		fmt.Println("A daily stock watchlist replay engine")
		fmt.Println("https://github.com/rustyeddy/watchtrader")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
