// Package derive holds the pure classification and aggregation rules applied
// to fetched backend data. Nothing here performs I/O or mutates shared state;
// malformed numeric input degrades to explicit unavailable markers instead of
// panicking or producing NaN, because upstream data quality is not this
// layer's problem.
package derive

import (
	"fmt"
	"sort"
	"strings"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
)

// Status is the derived per-client risk status.
type Status int

const (
	StatusNeutral Status = iota
	StatusGood
	StatusRisk
)

func (s Status) String() string {
	switch s {
	case StatusGood:
		return "GOOD"
	case StatusRisk:
		return "RISK"
	default:
		return "NEUTRAL"
	}
}

// FearLevel is the closed form of the backend's fear_level string.
type FearLevel int

const (
	FearNone FearLevel = iota
	FearElevated
	FearHigh
)

// ParseFearLevel maps the wire string onto the closed enum. Unknown values
// are treated as no fear rather than rejected.
func ParseFearLevel(s string) FearLevel {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ELEVATED_FEAR":
		return FearElevated
	case "HIGH_FEAR":
		return FearHigh
	default:
		return FearNone
	}
}

// RiskLabel is a client's stated risk profile.
type RiskLabel string

const (
	RiskConservative RiskLabel = "CONSERVATIVE"
	RiskModerate     RiskLabel = "MODERATE"
	RiskAggressive   RiskLabel = "AGGRESSIVE"
)

// ParseRiskLabel validates a risk label string.
func ParseRiskLabel(s string) (RiskLabel, error) {
	switch label := RiskLabel(strings.ToUpper(strings.TrimSpace(s))); label {
	case RiskConservative, RiskModerate, RiskAggressive:
		return label, nil
	default:
		return "", fmt.Errorf("invalid risk label %q", s)
	}
}

// DefaultTargetVol is the documented default annual volatility target for a
// risk profile, as a fraction.
func (r RiskLabel) DefaultTargetVol() float64 {
	switch r {
	case RiskConservative:
		return 0.08
	case RiskAggressive:
		return 0.18
	default:
		return 0.12
	}
}

// Ratio thresholds for Classify. The band between them is intentionally
// NEUTRAL: close enough to target not to alarm, too far off to call good.
const (
	goodRatioMax = 1.1
	riskRatioMin = 1.3
)

// Classify derives a client's risk status from current volatility versus
// target, plus the upstream misalignment flag. The ratio is undefined when
// either input is invalid or the target is non-positive; that yields NEUTRAL.
// A misaligned portfolio can never be GOOD, and misalignment alone is
// sufficient for RISK.
func Classify(currentVol, targetVol api.Number, misaligned bool) Status {
	if !currentVol.Valid || !targetVol.Valid || targetVol.Value <= 0 {
		return StatusNeutral
	}
	ratio := currentVol.Value / targetVol.Value
	switch {
	case ratio <= goodRatioMax && !misaligned:
		return StatusGood
	case ratio >= riskRatioMin || misaligned:
		return StatusRisk
	default:
		return StatusNeutral
	}
}

// driftFloor is the minimum absolute drift worth surfacing (1%).
const driftFloor = 0.01

// maxTopDrifts caps the drift summary length.
const maxTopDrifts = 3

// Drift is one symbol's signed deviation from the optimal weight.
type Drift struct {
	Symbol string
	Value  float64
}

// TopDrifts ranks per-symbol drift by magnitude: entries with |drift| above
// the floor, descending by absolute value, at most three. Ties break on
// symbol so the output is deterministic regardless of map iteration order.
func TopDrifts(drift map[string]api.Number) []Drift {
	ranked := make([]Drift, 0, len(drift))
	for symbol, value := range drift {
		if !value.Valid {
			continue
		}
		if abs(value.Value) <= driftFloor {
			continue
		}
		ranked = append(ranked, Drift{Symbol: symbol, Value: value.Value})
	}

	sort.Slice(ranked, func(i, j int) bool {
		ai, aj := abs(ranked[i].Value), abs(ranked[j].Value)
		if ai != aj {
			return ai > aj
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})

	if len(ranked) > maxTopDrifts {
		ranked = ranked[:maxTopDrifts]
	}
	return ranked
}

// DriftPlaceholder is rendered when no drift exceeds the floor.
const DriftPlaceholder = "no material drift"

// FormatDrifts renders ranked drifts as signed percentages with one decimal.
func FormatDrifts(drifts []Drift) string {
	if len(drifts) == 0 {
		return DriftPlaceholder
	}
	parts := make([]string, len(drifts))
	for i, d := range drifts {
		parts[i] = fmt.Sprintf("%s %+.1f%%", d.Symbol, d.Value*100)
	}
	return strings.Join(parts, ", ")
}

// Metrics are the headline dashboard figures computed over the signal list.
// HasSignals distinguishes a real zero fear count from an empty collection;
// MeanIV and MaxIVR carry their own validity because a non-empty collection
// may still have no eligible entries.
type Metrics struct {
	MeanIV     api.Number
	MaxIVR     api.Number
	FearCount  int
	HasSignals bool
}

// Aggregate computes dashboard metrics over a signal collection. Entries with
// invalid implied vol are excluded from both the mean's numerator and
// denominator; entries with invalid rank are excluded from the max.
func Aggregate(signals []api.Signal) Metrics {
	m := Metrics{HasSignals: len(signals) > 0}

	var ivSum float64
	var ivCount int
	for _, s := range signals {
		if s.IV.Valid {
			ivSum += s.IV.Value
			ivCount++
		}
		if s.IVR.Valid && (!m.MaxIVR.Valid || s.IVR.Value > m.MaxIVR.Value) {
			m.MaxIVR = api.Num(s.IVR.Value)
		}
		if lvl := ParseFearLevel(s.FearLevel); lvl == FearElevated || lvl == FearHigh {
			m.FearCount++
		}
	}
	if ivCount > 0 {
		m.MeanIV = api.Num(ivSum / float64(ivCount))
	}
	return m
}

// ClientCard is the ephemeral per-client view-model, rebuilt on every
// dashboard refresh and never persisted.
type ClientCard struct {
	ClientID     string
	Name         string
	RiskLabel    string
	TargetVol    api.Number
	CurrentVol   api.Number
	Sharpe       api.Number
	AsOf         string
	Misaligned   bool
	Status       Status
	TopDrifts    []Drift
	DriftSummary string
}

// BuildCards derives one card per fetched portfolio, preserving order.
func BuildCards(portfolios []api.Portfolio) []ClientCard {
	cards := make([]ClientCard, 0, len(portfolios))
	for _, p := range portfolios {
		drifts := TopDrifts(p.DriftFromOptimal)
		cards = append(cards, ClientCard{
			ClientID:     p.Client.ClientID,
			Name:         p.Client.Name,
			RiskLabel:    p.Client.RiskLabel,
			TargetVol:    p.Client.TargetAnnualVol,
			CurrentVol:   p.CurrentAnnualVol,
			Sharpe:       p.IVAdjustedOptimal.Sharpe,
			AsOf:         p.IVAdjustedOptimal.AsOf,
			Misaligned:   p.MisalignedWithProfile,
			Status:       Classify(p.CurrentAnnualVol, p.Client.TargetAnnualVol, p.MisalignedWithProfile),
			TopDrifts:    drifts,
			DriftSummary: FormatDrifts(drifts),
		})
	}
	return cards
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
