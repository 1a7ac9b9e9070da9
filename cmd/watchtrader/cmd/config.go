package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/watchtrader/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage replay configuration files.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file

Examples:
  watchtrader config init -o watchtrader.yaml
  watchtrader config validate -f watchtrader.toml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	Long: `Create a new configuration file with default settings. The format
follows the extension: .yaml, .toml or .json.

Example:
  watchtrader config init -o watchtrader.yaml`,
	RunE: runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check if a configuration file is valid and can be loaded.

Example:
  watchtrader config validate -f watchtrader.yaml`,
	RunE: runConfigValidate,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "watchtrader.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	_ = configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("✓ Created default configuration: %s\n", configInitOutput)
	fmt.Println("\nEdit the file and run with:")
	fmt.Printf("  watchtrader run -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if err := config.LoadEnv(envFile); err != nil {
		return err
	}
	cfg, err := config.LoadFromFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	overlay := "off"
	if cfg.Overlay.Enabled {
		overlay = fmt.Sprintf("MA%d, reduce %.0f%%", cfg.Overlay.Period, cfg.Overlay.ReduceRatio*100)
	}

	fmt.Printf("✓ Configuration valid: %s\n", configValidatePath)
	fmt.Printf("  Capital: %.2f (%.2f per stock, max %d watched)\n",
		cfg.Account.InitialCapital, cfg.Account.PerStockAmount, cfg.Account.MaxWatchlist)
	fmt.Printf("  Averages: %v over %d days\n", cfg.Averages.Periods, cfg.Averages.WindowSize)
	fmt.Printf("  Overlay: %s\n", overlay)
	fmt.Printf("  Prices: %s\n", cfg.Data.PriceSource)
	fmt.Printf("  Journal: %s\n", cfg.Journal.Type)
	return nil
}
