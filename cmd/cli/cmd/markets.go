// Package cmd - markets command
package cmd

import (
	"github.com/spf13/cobra"

	"crossmarket/adapters/markets"
	"crossmarket/internal/app"
	"crossmarket/internal/config"
)

var marketsFile string

// marketsCmd prints the effective market profiles
var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "Print the effective market profiles as HCL",
	Long: `Print the home market, VAT rates and markups in effect, in the same HCL
form accepted by markets_file. Redirect the output to start a custom profile file.

Examples:
  crossmarket markets > markets.hcl
  crossmarket markets --file markets.hcl`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Get()
		if cmd.Flags().Changed("file") {
			cfg.MarketsFile = marketsFile
		}
		profiles, err := app.LoadProfiles(cfg)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(markets.Render(profiles))
		return err
	},
}

func init() {
	marketsCmd.Flags().StringVar(&marketsFile, "file", "", "HCL market profile file")
}
