package app

import (
	"context"
	"fmt"
	"os"
)

// Explain prints the advisor-facing narrative for one client.
func (a *App) Explain(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("client id is required")
	}

	sessions, err := a.newSessionStore()
	if err != nil {
		return err
	}
	client := a.newAPIClient(sessions)

	narrative, err := client.Explain(ctx, clientID)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "%s\nRegime: %s\n\n%s\n", narrative.Title, narrative.Regime, narrative.Body)

	if len(narrative.KeyPoints) > 0 {
		fmt.Fprintln(os.Stdout)
		for _, point := range narrative.KeyPoints {
			fmt.Fprintf(os.Stdout, "  - %s\n", point)
		}
	}

	if len(narrative.TopFearSignals) > 0 {
		fmt.Fprintln(os.Stdout, "\nFear signals:")
		for _, signal := range narrative.TopFearSignals {
			ivr := "n/a"
			if signal.IVR.Valid {
				ivr = fmt.Sprintf("%.2f", signal.IVR.Value)
			}
			fmt.Fprintf(os.Stdout, "  %-6s %-14s IVR %s\n", signal.Symbol, signal.FearLevel, ivr)
		}
	}

	return nil
}
