package cli

import (
	"github.com/spf13/cobra"

	"github.com/samg3003/wfs-fintech-hackathon/internal/app"
)

var (
	onboardName      string
	onboardRiskLabel string
	onboardTargetVol float64
)

var onboardCmd = &cobra.Command{
	Use:   "onboard",
	Short: "Create a new client",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.OnboardOptions{
			Name:         onboardName,
			RiskLabel:    onboardRiskLabel,
			TargetVolPct: onboardTargetVol,
		}
		return getApp().Onboard(cmd.Context(), opts)
	},
}

func init() {
	onboardCmd.Flags().StringVar(&onboardName, "name", "", "Client name")
	onboardCmd.Flags().StringVar(&onboardRiskLabel, "risk-label", "", "CONSERVATIVE, MODERATE or AGGRESSIVE (default AGGRESSIVE)")
	onboardCmd.Flags().Float64Var(&onboardTargetVol, "target-vol", 0, "Target annual vol as a percent (defaults to the label's default)")
}
