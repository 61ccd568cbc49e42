package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"

	"github.com/samg3003/wfs-fintech-hackathon/internal/storage"
)

type refreshLister interface {
	ListRecentRefreshes(ctx context.Context, limit int) ([]storage.RefreshRecord, error)
}

type alertLister interface {
	ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error)
}

// Show prints recent refresh cycles, or recent alerts with --alerts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot show history")
	}
	if closeStore != nil {
		defer closeStore()
	}

	if opts.Alerts {
		return showAlerts(ctx, store, opts.Limit)
	}
	return showRefreshes(ctx, store, opts.Limit)
}

func showRefreshes(ctx context.Context, store refreshLister, limit int) error {
	refreshes, err := store.ListRecentRefreshes(ctx, limit)
	if err != nil {
		return err
	}
	if len(refreshes) == 0 {
		fmt.Fprintln(os.Stdout, "no refresh history found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tRegime\tMean IV\tMax IVR\tFear\tClients\tRisk\tStatus\tError")

	for _, refresh := range refreshes {
		errMsg := ""
		if refresh.Error != nil {
			errMsg = sanitizeInline(*refresh.Error)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			refresh.Bucket.UTC().Format(time.RFC3339),
			refresh.Regime,
			formatNullDecimal(refresh.MeanIV, 4),
			formatNullDecimal(refresh.MaxIVR, 2),
			formatNullInt(refresh.FearCount),
			refresh.ClientCount,
			refresh.RiskCount,
			refresh.Status,
			errMsg,
		)
	}

	return writer.Flush()
}

func showAlerts(ctx context.Context, store alertLister, limit int) error {
	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tClient\tTransition\tVol Ratio\tChannels")

	for _, alert := range alerts {
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s -> %s\t%s\t%s\n",
			alert.Bucket.UTC().Format(time.RFC3339),
			alert.ClientName,
			alert.PrevStatus,
			alert.Status,
			formatNullDecimal(alert.VolRatio, 2),
			strings.Join(alert.Channels, ","),
		)
	}

	return writer.Flush()
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

func formatNullDecimal(d *decimal.Decimal, places int32) string {
	if d == nil {
		return "n/a"
	}
	return d.StringFixed(places)
}

func formatNullInt(v *int32) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%d", *v)
}
