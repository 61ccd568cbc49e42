package app

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samg3003/wfs-fintech-hackathon/internal/alerting"
)

// SimulateAlert pushes a fabricated risk transition through the configured
// alert channel, so the delivery path can be verified without waiting for a
// real client to breach.
func (a *App) SimulateAlert(ctx context.Context, clientName string, volRatio float64) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	if clientName == "" {
		clientName = "Simulated Client"
	}
	ratio := decimal.NewFromFloat(volRatio)

	note := alerting.Notification{
		Bucket:     time.Now().UTC().Truncate(a.Config.Watch.Interval),
		ClientID:   "simulated",
		ClientName: clientName,
		RiskLabel:  "MODERATE",
		Status:     "RISK",
		PrevStatus: "GOOD",
		VolRatio:   &ratio,
		Regime:     "STRESS",
		DriftNote:  "simulated alert, no portfolio data",
		Channels:   a.Config.Alerting.Channels,
	}

	return notifier.Notify(ctx, note)
}
