package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"

	"github.com/samg3003/wfs-fintech-hackathon/internal/storage"
)

// Export renders refresh history as CSV and/or a PNG chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	opts.MaxPoints = a.Config.ResolveMaxPoints(opts.MaxPoints)

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errors.New("database not configured; cannot export")
	}
	if closeStore != nil {
		defer closeStore()
	}

	to := time.Now().UTC()
	if opts.To != nil {
		to = opts.To.UTC()
	}

	from := to.Add(-time.Duration(opts.MaxPoints) * a.Config.Watch.Interval)
	if opts.From != nil {
		from = opts.From.UTC()
	}

	if !from.Before(to) {
		return errors.New("from must be before to")
	}

	refreshes, err := store.ListRefreshesBetween(ctx, from, to)
	if err != nil {
		return err
	}
	if len(refreshes) == 0 {
		a.Logger.Info().Msg("no refresh history found for export window")
		return nil
	}

	downsampled := downsampleRefreshes(refreshes, opts.MaxPoints)
	a.Logger.Info().Int("total", len(refreshes)).Int("exported", len(downsampled)).Msg("exporting refresh history")

	if opts.CSVPath != "" {
		if err := writeRefreshesCSV(opts.CSVPath, downsampled); err != nil {
			return err
		}
	}

	if opts.PNGPath != "" {
		if err := writeRefreshesPNG(opts.PNGPath, downsampled); err != nil {
			return err
		}
	}

	return nil
}

func downsampleRefreshes(refreshes []storage.RefreshRecord, max int) []storage.RefreshRecord {
	if max <= 0 || len(refreshes) <= max {
		return refreshes
	}

	result := make([]storage.RefreshRecord, 0, max)
	step := float64(len(refreshes)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(refreshes) {
			idx = len(refreshes) - 1
		}
		result = append(result, refreshes[idx])
	}
	return result
}

func writeRefreshesCSV(path string, refreshes []storage.RefreshRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{"bucket_ts", "regime", "mean_iv", "max_ivr", "fear_count", "signal_count", "client_count", "risk_count", "status", "error"}
	if err := writer.Write(header); err != nil {
		return err
	}

	for _, refresh := range refreshes {
		meanIV := ""
		if refresh.MeanIV != nil {
			meanIV = refresh.MeanIV.String()
		}
		maxIVR := ""
		if refresh.MaxIVR != nil {
			maxIVR = refresh.MaxIVR.String()
		}
		fearCount := ""
		if refresh.FearCount != nil {
			fearCount = fmt.Sprintf("%d", *refresh.FearCount)
		}
		errMsg := ""
		if refresh.Error != nil {
			errMsg = *refresh.Error
		}
		record := []string{
			refresh.Bucket.Format(time.RFC3339),
			refresh.Regime,
			meanIV,
			maxIVR,
			fearCount,
			fmt.Sprintf("%d", refresh.SignalCount),
			fmt.Sprintf("%d", refresh.ClientCount),
			fmt.Sprintf("%d", refresh.RiskCount),
			refresh.Status,
			errMsg,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	return writer.Error()
}

func writeRefreshesPNG(path string, refreshes []storage.RefreshRecord) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	// Only rows carrying metrics chart cleanly; errored rows have none.
	x := make([]time.Time, 0, len(refreshes))
	meanIV := make([]float64, 0, len(refreshes))
	maxIVR := make([]float64, 0, len(refreshes))
	fearCount := make([]float64, 0, len(refreshes))

	for _, refresh := range refreshes {
		if refresh.MeanIV == nil || refresh.MaxIVR == nil || refresh.FearCount == nil {
			continue
		}
		x = append(x, refresh.Bucket)
		meanIV = append(meanIV, refresh.MeanIV.InexactFloat64())
		maxIVR = append(maxIVR, refresh.MaxIVR.InexactFloat64())
		fearCount = append(fearCount, float64(*refresh.FearCount))
	}
	if len(x) < 2 {
		return errors.New("not enough refreshes with metrics to chart")
	}

	valueFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}
	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "IV / IVR",
			ValueFormatter: valueFormatter,
		},
		YAxisSecondary: chart.YAxis{
			Name:           "Fear signals",
			ValueFormatter: valueFormatter,
		},
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "Mean IV",
				XValues: x,
				YValues: meanIV,
			},
			chart.TimeSeries{
				Name:    "Max IVR",
				XValues: x,
				YValues: maxIVR,
			},
			chart.TimeSeries{
				Name:    "Fear signals",
				XValues: x,
				YValues: fearCount,
				YAxis:   chart.YAxisSecondary,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return graph.Render(chart.PNG, file)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
