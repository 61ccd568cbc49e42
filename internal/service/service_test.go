package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
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

type fakeSource struct {
	snapshot *dashboard.Snapshot
	err      error
}

func (f *fakeSource) Refresh(ctx context.Context) (*dashboard.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type fakeRefreshStore struct {
	refreshes []storage.RefreshRecord
	statuses  [][]storage.ClientStatusRecord
	previous  map[string]string
	errored   []string
}

func (f *fakeRefreshStore) UpsertRefresh(ctx context.Context, record storage.RefreshRecord) error {
	f.refreshes = append(f.refreshes, record)
	return nil
}

func (f *fakeRefreshStore) UpsertClientStatuses(ctx context.Context, statuses []storage.ClientStatusRecord) error {
	f.statuses = append(f.statuses, statuses)
	return nil
}

func (f *fakeRefreshStore) ListRecentRefreshes(ctx context.Context, limit int) ([]storage.RefreshRecord, error) {
	return f.refreshes, nil
}

func (f *fakeRefreshStore) ListRefreshesBetween(ctx context.Context, from, to time.Time) ([]storage.RefreshRecord, error) {
	return f.refreshes, nil
}

func (f *fakeRefreshStore) LatestClientStatuses(ctx context.Context) (map[string]string, error) {
	return f.previous, nil
}

func (f *fakeRefreshStore) MarkRefreshErrored(ctx context.Context, bucket time.Time, errMsg string) error {
	f.errored = append(f.errored, errMsg)
	return nil
}

type fakeAlertStore struct {
	alerts []storage.AlertRecord
}

func (f *fakeAlertStore) InsertAlert(ctx context.Context, alert storage.AlertRecord) (storage.AlertRecord, error) {
	alert.ID = int64(len(f.alerts) + 1)
	f.alerts = append(f.alerts, alert)
	return alert, nil
}

func (f *fakeAlertStore) ListRecentAlerts(ctx context.Context, limit int) ([]storage.AlertRecord, error) {
	return f.alerts, nil
}

type fakeNotifier struct {
	sent []alerting.Notification
	err  error
}

func (f *fakeNotifier) Notify(ctx context.Context, notification alerting.Notification) error {
	f.sent = append(f.sent, notification)
	return f.err
}

func watchConfig() *config.Config {
	return &config.Config{
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Channels: []string{"telegram"},
		},
	}
}

func testSnapshot() *dashboard.Snapshot {
	return &dashboard.Snapshot{
		Generation: 1,
		FetchedAt:  time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC),
		Regime:     "STRESS",
		Tickers:    []string{"SPY", "QQQ"},
		Cards: []derive.ClientCard{
			{
				ClientID:   "margaret",
				Name:       "Margaret Chen",
				RiskLabel:  "CONSERVATIVE",
				TargetVol:  api.Num(0.08),
				CurrentVol: api.Num(0.064),
				Status:     derive.StatusGood,
			},
			{
				ClientID:   "liam",
				Name:       "Liam O'Brien",
				RiskLabel:  "AGGRESSIVE",
				TargetVol:  api.Num(0.18),
				CurrentVol: api.Num(0.36),
				Misaligned: true,
				Status:     derive.StatusRisk,
			},
		},
		Metrics: derive.Metrics{
			MeanIV:     api.Num(0.25),
			MaxIVR:     api.Num(1.8),
			FearCount:  1,
			HasSignals: true,
		},
		Signals: []api.Signal{{Symbol: "SPY"}, {Symbol: "QQQ"}},
	}
}

func TestProcessBucketPersistsAndAlerts(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	refreshStore := &fakeRefreshStore{}
	alertStore := &fakeAlertStore{}
	notifier := &fakeNotifier{}

	svc := New(watchConfig(), nil, source, refreshStore, alertStore, notifier, zerolog.Nop())

	bucket := time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)
	if err := svc.ProcessBucket(context.Background(), bucket); err != nil {
		t.Fatalf("ProcessBucket returned error: %v", err)
	}

	if len(refreshStore.refreshes) != 1 {
		t.Fatalf("expected 1 refresh record, got %d", len(refreshStore.refreshes))
	}
	record := refreshStore.refreshes[0]
	if record.Status != "complete" {
		t.Errorf("expected status complete, got %q", record.Status)
	}
	if record.Regime != "STRESS" {
		t.Errorf("expected regime STRESS, got %q", record.Regime)
	}
	if record.RiskCount != 1 {
		t.Errorf("expected 1 risk client, got %d", record.RiskCount)
	}
	if record.MeanIV == nil || !record.MeanIV.Equal(mustDecimal(t, "0.25")) {
		t.Errorf("unexpected mean IV: %v", record.MeanIV)
	}

	if len(refreshStore.statuses) != 1 || len(refreshStore.statuses[0]) != 2 {
		t.Fatalf("expected 2 client status rows, got %v", refreshStore.statuses)
	}

	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	note := notifier.sent[0]
	if note.ClientID != "liam" {
		t.Errorf("expected alert for liam, got %q", note.ClientID)
	}
	if note.PrevStatus != "NONE" {
		t.Errorf("expected prev status NONE for unseen client, got %q", note.PrevStatus)
	}
	if note.VolRatio == nil || !note.VolRatio.Equal(mustDecimal(t, "2")) {
		t.Errorf("unexpected vol ratio: %v", note.VolRatio)
	}

	if len(alertStore.alerts) != 1 {
		t.Fatalf("expected 1 alert record, got %d", len(alertStore.alerts))
	}
}

func TestProcessBucketSkipsClientsAlreadyInRisk(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	refreshStore := &fakeRefreshStore{
		previous: map[string]string{"liam": "RISK", "margaret": "GOOD"},
	}
	notifier := &fakeNotifier{}

	svc := New(watchConfig(), nil, source, refreshStore, &fakeAlertStore{}, notifier, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessBucket returned error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no re-alert for client already in RISK, got %d", len(notifier.sent))
	}
}

func TestProcessBucketAlertsOnTransition(t *testing.T) {
	source := &fakeSource{snapshot: testSnapshot()}
	refreshStore := &fakeRefreshStore{
		previous: map[string]string{"liam": "GOOD", "margaret": "GOOD"},
	}
	notifier := &fakeNotifier{}

	svc := New(watchConfig(), nil, source, refreshStore, &fakeAlertStore{}, notifier, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessBucket returned error: %v", err)
	}
	if len(notifier.sent) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(notifier.sent))
	}
	if notifier.sent[0].PrevStatus != "GOOD" {
		t.Errorf("expected prev status GOOD, got %q", notifier.sent[0].PrevStatus)
	}
}

func TestProcessBucketSessionExpiryStopsLoop(t *testing.T) {
	source := &fakeSource{err: fmt.Errorf("GET /api/portfolios: %w", api.ErrSessionExpired)}
	svc := New(watchConfig(), nil, source, &fakeRefreshStore{}, &fakeAlertStore{}, &fakeNotifier{}, zerolog.Nop())

	err := svc.ProcessBucket(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if !scheduler.IsStop(err) {
		t.Errorf("expected stop marker on session expiry, got %v", err)
	}
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Errorf("expected wrapped session expiry, got %v", err)
	}
}

func TestProcessBucketRecordsFetchFailure(t *testing.T) {
	source := &fakeSource{err: errors.New("connection refused")}
	refreshStore := &fakeRefreshStore{}
	svc := New(watchConfig(), nil, source, refreshStore, &fakeAlertStore{}, &fakeNotifier{}, zerolog.Nop())

	err := svc.ProcessBucket(context.Background(), time.Now())
	if err == nil {
		t.Fatal("expected error")
	}
	if scheduler.IsStop(err) {
		t.Error("transient fetch failure must not stop the loop")
	}
	if len(refreshStore.errored) != 1 {
		t.Fatalf("expected 1 errored row, got %d", len(refreshStore.errored))
	}
}

func TestProcessBucketAlertingDisabled(t *testing.T) {
	cfg := watchConfig()
	cfg.Alerting.Enabled = false
	source := &fakeSource{snapshot: testSnapshot()}
	notifier := &fakeNotifier{}

	svc := New(cfg, nil, source, &fakeRefreshStore{}, &fakeAlertStore{}, notifier, zerolog.Nop())

	if err := svc.ProcessBucket(context.Background(), time.Now()); err != nil {
		t.Fatalf("ProcessBucket returned error: %v", err)
	}
	if len(notifier.sent) != 0 {
		t.Fatalf("expected no notifications with alerting disabled, got %d", len(notifier.sent))
	}
}

func mustDecimal(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestRefreshRecordForUnavailableMetrics(t *testing.T) {
	snap := testSnapshot()
	snap.Metrics = derive.Metrics{}
	snap.Signals = nil

	record := RefreshRecordFor(time.Now(), snap)
	if record.MeanIV != nil {
		t.Errorf("expected NULL mean IV, got %v", record.MeanIV)
	}
	if record.MaxIVR != nil {
		t.Errorf("expected NULL max IVR, got %v", record.MaxIVR)
	}
	if record.FearCount != nil {
		t.Errorf("expected NULL fear count, got %v", record.FearCount)
	}
}
