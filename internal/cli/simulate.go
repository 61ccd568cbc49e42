package cli

import (
	"github.com/spf13/cobra"
)

var (
	simulateClient string
	simulateRatio  float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Send a fabricated risk alert to verify channel delivery",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().SimulateAlert(cmd.Context(), simulateClient, simulateRatio)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateClient, "client", "", "Client name shown in the alert")
	simulateCmd.Flags().Float64Var(&simulateRatio, "vol-ratio", 1.5, "Volatility ratio shown in the alert")
}
