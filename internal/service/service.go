package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/samg3003/wfs-fintech-hackathon/internal/alerting"
	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/config"
	"github.com/samg3003/wfs-fintech-hackathon/internal/dashboard"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
	"github.com/samg3003/wfs-fintech-hackathon/internal/scheduler"
	"github.com/samg3003/wfs-fintech-hackathon/internal/storage"
)

// SnapshotSource produces dashboard snapshots; satisfied by *dashboard.Refresher.
type SnapshotSource interface {
	Refresh(ctx context.Context) (*dashboard.Snapshot, error)
}

// Service runs the unattended watch loop: refresh, persist, and alert on
// clients entering RISK.
type Service struct {
	scheduler    *scheduler.Scheduler
	source       SnapshotSource
	refreshStore storage.RefreshStore
	alertStore   storage.AlertStore
	notifier     alerting.Notifier
	logger       zerolog.Logger

	channels []string
	alertsOn bool
}

// New constructs the watch service.
func New(cfg *config.Config, sched *scheduler.Scheduler, source SnapshotSource, refreshStore storage.RefreshStore, alertStore storage.AlertStore, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	return &Service{
		scheduler:    sched,
		source:       source,
		refreshStore: refreshStore,
		alertStore:   alertStore,
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		channels:     cfg.Alerting.Channels,
		alertsOn:     cfg.Alerting.Enabled,
	}
}

// Run begins the aligned refresh loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessBucket)
}

// ProcessBucket executes one watch-mode refresh cycle. A session expiry is
// terminal for the whole loop: the operator has to log in again, so retrying
// every interval would only spam the backend with unauthenticated calls.
func (s *Service) ProcessBucket(ctx context.Context, bucket time.Time) error {
	snap, err := s.source.Refresh(ctx)
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			s.logger.Warn().Time("bucket", bucket).Msg("session expired; stopping watch loop")
			return scheduler.Stop(err)
		}
		if s.refreshStore != nil {
			if storeErr := s.refreshStore.MarkRefreshErrored(ctx, bucket, err.Error()); storeErr != nil {
				s.logger.Error().Err(storeErr).Time("bucket", bucket).Msg("failed to record errored refresh")
			}
		}
		return fmt.Errorf("refresh: %w", err)
	}

	// Read previous statuses before writing this cycle's, so transitions
	// compare against the prior refresh.
	var previous map[string]string
	if s.refreshStore != nil {
		previous, err = s.refreshStore.LatestClientStatuses(ctx)
		if err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to load previous statuses")
			previous = nil
		}
	}

	if s.refreshStore != nil {
		if err := s.refreshStore.UpsertRefresh(ctx, RefreshRecordFor(bucket, snap)); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to upsert refresh sample")
		}
		if err := s.refreshStore.UpsertClientStatuses(ctx, ClientStatusRecordsFor(bucket, snap)); err != nil {
			s.logger.Error().Err(err).Time("bucket", bucket).Msg("failed to upsert client statuses")
		}
	}

	s.logger.Info().
		Time("bucket", bucket).
		Str("regime", snap.Regime).
		Int("clients", len(snap.Cards)).
		Int("risk", countRisk(snap.Cards)).
		Msg("refresh recorded")

	if s.alertsOn && s.notifier != nil {
		s.dispatchAlerts(ctx, bucket, snap, previous)
	}

	return nil
}

func (s *Service) dispatchAlerts(ctx context.Context, bucket time.Time, snap *dashboard.Snapshot, previous map[string]string) {
	for _, card := range snap.Cards {
		if card.Status != derive.StatusRisk {
			continue
		}
		prev, seen := previous[card.ClientID]
		if seen && prev == derive.StatusRisk.String() {
			continue // already in RISK, no re-alert
		}
		if !seen {
			prev = "NONE"
		}

		ratio := volRatio(card)
		if s.alertStore != nil {
			record := storage.AlertRecord{
				Bucket:     bucket,
				ClientID:   card.ClientID,
				ClientName: card.Name,
				Status:     card.Status.String(),
				PrevStatus: prev,
				VolRatio:   ratio,
				Channels:   s.channels,
			}
			if _, err := s.alertStore.InsertAlert(ctx, record); err != nil {
				s.logger.Error().Err(err).Str("client_id", card.ClientID).Msg("failed to persist alert record")
			}
		}

		note := alerting.Notification{
			Bucket:     bucket,
			ClientID:   card.ClientID,
			ClientName: card.Name,
			RiskLabel:  card.RiskLabel,
			Status:     card.Status.String(),
			PrevStatus: prev,
			VolRatio:   ratio,
			Regime:     snap.Regime,
			DriftNote:  card.DriftSummary,
			Channels:   s.channels,
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("client_id", card.ClientID).Msg("failed to dispatch alert")
		}
	}
}

// RefreshRecordFor maps a snapshot onto its persisted form.
func RefreshRecordFor(bucket time.Time, snap *dashboard.Snapshot) storage.RefreshRecord {
	record := storage.RefreshRecord{
		Bucket:      bucket,
		Regime:      snap.Regime,
		Status:      "complete",
		SignalCount: len(snap.Signals),
		ClientCount: len(snap.Cards),
		RiskCount:   countRisk(snap.Cards),
		CreatedAt:   time.Now().UTC(),
	}
	if snap.Metrics.MeanIV.Valid {
		d := decimal.NewFromFloat(snap.Metrics.MeanIV.Value)
		record.MeanIV = &d
	}
	if snap.Metrics.MaxIVR.Valid {
		d := decimal.NewFromFloat(snap.Metrics.MaxIVR.Value)
		record.MaxIVR = &d
	}
	if snap.Metrics.HasSignals {
		count := int32(snap.Metrics.FearCount)
		record.FearCount = &count
	}
	return record
}

// ClientStatusRecordsFor maps a snapshot's cards onto persisted status rows.
func ClientStatusRecordsFor(bucket time.Time, snap *dashboard.Snapshot) []storage.ClientStatusRecord {
	records := make([]storage.ClientStatusRecord, 0, len(snap.Cards))
	for _, card := range snap.Cards {
		records = append(records, storage.ClientStatusRecord{
			Bucket:       bucket,
			ClientID:     card.ClientID,
			Name:         card.Name,
			RiskLabel:    card.RiskLabel,
			Status:       card.Status.String(),
			VolRatio:     volRatio(card),
			Misaligned:   card.Misaligned,
			DriftSummary: card.DriftSummary,
		})
	}
	return records
}

func volRatio(card derive.ClientCard) *decimal.Decimal {
	if !card.CurrentVol.Valid || !card.TargetVol.Valid || card.TargetVol.Value <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(card.CurrentVol.Value / card.TargetVol.Value)
	return &d
}

func countRisk(cards []derive.ClientCard) int {
	n := 0
	for _, card := range cards {
		if card.Status == derive.StatusRisk {
			n++
		}
	}
	return n
}
