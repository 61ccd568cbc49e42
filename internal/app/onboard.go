package app

import (
	"context"
	"fmt"
	"os"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
)

// Onboard creates a new client through the backend. The target vol is given
// as a percent on the CLI and sent as a fraction; when omitted it falls back
// to the risk label's documented default.
func (a *App) Onboard(ctx context.Context, opts OnboardOptions) error {
	if opts.Name == "" {
		return fmt.Errorf("--name is required")
	}

	label := opts.RiskLabel
	if label == "" {
		label = string(derive.RiskAggressive)
	}
	riskLabel, err := derive.ParseRiskLabel(label)
	if err != nil {
		return err
	}

	targetVol := riskLabel.DefaultTargetVol()
	if opts.TargetVolPct != 0 {
		if opts.TargetVolPct < 0 {
			return fmt.Errorf("--target-vol must be a positive percent")
		}
		targetVol = opts.TargetVolPct / 100
	}

	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)

	profile, err := client.CreateClient(ctx, api.CreateClientRequest{
		Name:            opts.Name,
		RiskLabel:       string(riskLabel),
		TargetAnnualVol: targetVol,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Created client %s (%s, target vol %.1f%%)\n",
		profile.Name, profile.RiskLabel, targetVol*100)
	return nil
}
