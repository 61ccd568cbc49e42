// Package dashboard orchestrates a full dashboard refresh: concurrent
// fan-out of the four backend reads, derivation of view-models, and the
// refresh-generation bookkeeping that keeps a slow stale cycle from
// overwriting a newer one.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
	"github.com/samg3003/wfs-fintech-hackathon/internal/derive"
)

// RegimePlaceholder is used when neither response carries a regime.
const RegimePlaceholder = "UNKNOWN"

// Snapshot is the atomic result of one refresh cycle. Either every fetch
// succeeded and the snapshot is complete, or no snapshot is produced at all.
type Snapshot struct {
	Generation uint64
	FetchedAt  time.Time
	Regime     string
	Tickers    []string
	Cards      []derive.ClientCard
	Metrics    derive.Metrics
	Scenarios  []api.StressScenario
	Signals    []api.Signal
}

// Refresher drives dashboard refresh cycles against the backend client.
type Refresher struct {
	client *api.Client
	logger zerolog.Logger
	gen    atomic.Uint64
}

// NewRefresher constructs a Refresher.
func NewRefresher(client *api.Client, logger zerolog.Logger) *Refresher {
	return &Refresher{
		client: client,
		logger: logger.With().Str("component", "refresher").Logger(),
	}
}

// Latest reports the generation of the most recently issued refresh. A
// snapshot whose Generation is below this value was superseded while in
// flight and must be discarded at the rendering boundary.
func (r *Refresher) Latest() uint64 {
	return r.gen.Load()
}

// Refresh performs one full cycle: four concurrent reads, all-or-nothing.
// A session expiry from any fetch is reported as such even when other
// fetches failed differently in the same cycle.
func (r *Refresher) Refresh(ctx context.Context) (*Snapshot, error) {
	gen := r.gen.Add(1)
	started := time.Now()

	var (
		universe   api.UniverseResponse
		signals    api.SignalsResponse
		portfolios api.PortfoliosResponse
		stress     api.StressTestsResponse
	)

	fetches := []struct {
		name string
		run  func(context.Context) error
	}{
		{"universe", func(ctx context.Context) error {
			var err error
			universe, err = r.client.Universe(ctx)
			return err
		}},
		{"signals", func(ctx context.Context) error {
			var err error
			signals, err = r.client.Signals(ctx)
			return err
		}},
		{"portfolios", func(ctx context.Context) error {
			var err error
			portfolios, err = r.client.Portfolios(ctx)
			return err
		}},
		{"stress-tests", func(ctx context.Context) error {
			var err error
			stress, err = r.client.StressTests(ctx)
			return err
		}},
	}

	errs := make([]error, len(fetches))
	var wg sync.WaitGroup
	for i, f := range fetches {
		wg.Add(1)
		go func(idx int, run func(context.Context) error) {
			defer wg.Done()
			errs[idx] = run(ctx)
		}(i, f.run)
	}
	wg.Wait()

	// Session expiry wins over any other failure in the same cycle so the
	// caller transitions to login instead of showing a generic error.
	for _, err := range errs {
		if errors.Is(err, api.ErrSessionExpired) {
			return nil, err
		}
	}
	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", fetches[i].name, err)
		}
	}

	snap := &Snapshot{
		Generation: gen,
		FetchedAt:  started,
		Regime:     resolveRegime(universe.Regime, signals.Regime),
		Tickers:    universe.Tickers,
		Cards:      derive.BuildCards(portfolios.Portfolios),
		Metrics:    derive.Aggregate(signals.Signals),
		Scenarios:  stress.Scenarios,
		Signals:    signals.Signals,
	}

	r.logger.Debug().
		Uint64("generation", gen).
		Str("regime", snap.Regime).
		Int("clients", len(snap.Cards)).
		Int("signals", len(snap.Signals)).
		Dur("elapsed", time.Since(started)).
		Msg("refresh cycle complete")

	return snap, nil
}

func resolveRegime(universeRegime, signalsRegime string) string {
	if universeRegime != "" {
		return universeRegime
	}
	if signalsRegime != "" {
		return signalsRegime
	}
	return RegimePlaceholder
}
