package cli

import (
	"github.com/spf13/cobra"
)

var optionsIVRefresh bool

var optionsIVCmd = &cobra.Command{
	Use:   "options-iv",
	Short: "Show per-symbol implied volatility from the options chain",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().OptionsIV(cmd.Context(), optionsIVRefresh)
	},
}

func init() {
	optionsIVCmd.Flags().BoolVar(&optionsIVRefresh, "refresh", false, "Force a backend refresh of cached IV data")
}
