package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
	"github.com/samg3003/wfs-fintech-hackathon/internal/session"
)

type backendStub struct {
	universe    any
	signals     any
	stress      any
	portfolios  any
	failPath    string
	failStatus  int
	requestHits atomic.Int64
}

func (b *backendStub) handler(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.requestHits.Add(1)
		if b.failPath != "" && r.URL.Path == b.failPath {
			w.WriteHeader(b.failStatus)
			_ = json.NewEncoder(w).Encode(map[string]string{"detail": "boom"})
			return
		}
		var body any
		switch r.URL.Path {
		case "/api/universe":
			body = b.universe
		case "/api/signals":
			body = b.signals
		case "/api/portfolios":
			body = b.portfolios
		case "/api/stress-tests":
			body = b.stress
		default:
			w.WriteHeader(http.StatusNotFound)
			return
		}
		_ = json.NewEncoder(w).Encode(body)
	})
}

func healthyStub() *backendStub {
	return &backendStub{
		universe: map[string]any{"tickers": []string{"AAPL", "MSFT"}, "regime": "STRESS"},
		signals: map[string]any{
			"regime": "NORMAL",
			"signals": []map[string]any{
				{"symbol": "AAPL", "iv": 0.2, "ivr": 1.4, "fear_level": "NONE"},
				{"symbol": "MSFT", "iv": 0.3, "ivr": 2.1, "fear_level": "HIGH_FEAR"},
			},
		},
		portfolios: map[string]any{
			"portfolios": []map[string]any{
				{
					"client": map[string]any{
						"client_id": "margaret", "name": "Margaret Lee",
						"risk_label": "CONSERVATIVE", "target_annual_vol": 0.10,
					},
					"current_annual_vol":      0.08,
					"misaligned_with_profile": false,
					"drift_from_optimal":      map[string]any{"AAPL": 0.042, "MSFT": -0.002},
				},
				{
					"client": map[string]any{
						"client_id": "liam", "name": "Liam O'Brien",
						"risk_label": "AGGRESSIVE", "target_annual_vol": 0.10,
					},
					"current_annual_vol":      0.20,
					"misaligned_with_profile": false,
					"drift_from_optimal":      map[string]any{},
				},
			},
		},
		stress: map[string]any{
			"scenarios": []map[string]any{
				{"name": "2008_GFC", "description": "meltdown", "portfolio_loss_pct_current": -0.45, "portfolio_loss_pct_iv_adjusted": -0.32},
			},
		},
	}
}

func newRefresher(t *testing.T, baseURL string) (*Refresher, *session.Store) {
	t.Helper()
	sessions := session.NewStore(filepath.Join(t.TempDir(), "session"))
	if err := sessions.Set("tok"); err != nil {
		t.Fatal(err)
	}
	client := api.NewClient(api.Options{BaseURL: baseURL, Timeout: time.Second}, sessions, zerolog.Nop())
	return NewRefresher(client, zerolog.Nop()), sessions
}

func TestRefreshSuccess(t *testing.T) {
	stub := healthyStub()
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	r, _ := newRefresher(t, srv.URL)
	snap, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	if snap.Regime != "STRESS" {
		t.Fatalf("regime should come from universe, got %q", snap.Regime)
	}
	if len(snap.Cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(snap.Cards))
	}
	if snap.Cards[0].Status != derive.StatusGood {
		t.Fatalf("margaret (ratio 0.8) should be GOOD, got %s", snap.Cards[0].Status)
	}
	if snap.Cards[1].Status != derive.StatusRisk {
		t.Fatalf("liam (ratio 2.0) should be RISK, got %s", snap.Cards[1].Status)
	}
	if !snap.Metrics.MeanIV.Valid || snap.Metrics.MeanIV.Value != 0.25 {
		t.Fatalf("mean IV wrong: %+v", snap.Metrics.MeanIV)
	}
	if snap.Metrics.FearCount != 1 {
		t.Fatalf("fear count wrong: %d", snap.Metrics.FearCount)
	}
	if len(snap.Scenarios) != 1 {
		t.Fatalf("expected 1 scenario, got %d", len(snap.Scenarios))
	}
	if snap.Generation != 1 {
		t.Fatalf("first refresh should be generation 1, got %d", snap.Generation)
	}
}

func TestRefreshAllOrNothing(t *testing.T) {
	stub := healthyStub()
	stub.failPath = "/api/portfolios"
	stub.failStatus = http.StatusInternalServerError
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	r, _ := newRefresher(t, srv.URL)
	snap, err := r.Refresh(context.Background())
	if snap != nil {
		t.Fatal("no snapshot may be produced when any fetch fails")
	}
	var statusErr *api.StatusError
	if !errors.As(err, &statusErr) || statusErr.Status != http.StatusInternalServerError {
		t.Fatalf("expected 500 StatusError, got %v", err)
	}
}

func TestRefreshSessionExpiryWins(t *testing.T) {
	// Every endpoint 401s; whichever goroutine loses the race, the caller
	// must still see a session expiry, and only the expiry.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	r, sessions := newRefresher(t, srv.URL)
	_, err := r.Refresh(context.Background())
	if !errors.Is(err, api.ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired, got %v", err)
	}
	if _, ok := sessions.Get(); ok {
		t.Fatal("session must be cleared")
	}
}

func TestRefreshRegimeFallback(t *testing.T) {
	stub := healthyStub()
	stub.universe = map[string]any{"tickers": []string{"AAPL"}}
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	r, _ := newRefresher(t, srv.URL)
	snap, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Regime != "NORMAL" {
		t.Fatalf("regime should fall back to signals, got %q", snap.Regime)
	}

	stub.signals = map[string]any{"signals": []map[string]any{}}
	snap, err = r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if snap.Regime != RegimePlaceholder {
		t.Fatalf("regime should fall back to placeholder, got %q", snap.Regime)
	}
}

func TestGenerationSupersedesStaleCycle(t *testing.T) {
	stub := healthyStub()
	srv := httptest.NewServer(stub.handler(t))
	defer srv.Close()

	r, _ := newRefresher(t, srv.URL)
	first, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	second, err := r.Refresh(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if second.Generation <= first.Generation {
		t.Fatalf("generations must be monotonic: %d then %d", first.Generation, second.Generation)
	}
	// The first snapshot arriving after the second was issued is stale.
	if first.Generation >= r.Latest() {
		t.Fatal("first snapshot should be superseded")
	}
	if second.Generation != r.Latest() {
		t.Fatal("latest generation should match the newest snapshot")
	}
}
