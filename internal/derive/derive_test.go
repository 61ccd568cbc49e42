package derive

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/samg3003/wfs-fintech-hackathon/internal/api"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		name       string
		current    api.Number
		target     api.Number
		misaligned bool
		want       Status
	}{
		{"under target aligned", api.Num(0.08), api.Num(0.10), false, StatusGood},
		{"exactly at good boundary", api.Num(0.11), api.Num(0.10), false, StatusGood},
		{"double target", api.Num(0.20), api.Num(0.10), false, StatusRisk},
		{"exactly at risk boundary", api.Num(0.13), api.Num(0.10), false, StatusRisk},
		{"neutral band", api.Num(0.12), api.Num(0.10), false, StatusNeutral},
		{"misaligned blocks good", api.Num(0.08), api.Num(0.10), true, StatusRisk},
		{"misaligned in neutral band", api.Num(0.12), api.Num(0.10), true, StatusRisk},
		{"zero target", api.Num(0.08), api.Num(0), false, StatusNeutral},
		{"negative target", api.Num(0.08), api.Num(-0.1), true, StatusNeutral},
		{"invalid current", api.Number{}, api.Num(0.10), false, StatusNeutral},
		{"invalid target", api.Num(0.08), api.Number{}, true, StatusNeutral},
		{"nan current", api.Num(math.NaN()), api.Num(0.10), false, StatusNeutral},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.current, tc.target, tc.misaligned); got != tc.want {
				t.Fatalf("Classify(%v, %v, %v) = %s, want %s",
					tc.current, tc.target, tc.misaligned, got, tc.want)
			}
		})
	}
}

func TestTopDriftsRanking(t *testing.T) {
	drift := map[string]api.Number{
		"AAPL": api.Num(0.042),
		"MSFT": api.Num(-0.055),
		"NVDA": api.Num(0.013),
		"SPY":  api.Num(0.009),  // below floor
		"TLT":  api.Num(-0.010), // exactly at floor, excluded
		"HYG":  api.Num(0.021),
		"XLE":  {}, // invalid
	}

	got := TopDrifts(drift)
	if len(got) != 3 {
		t.Fatalf("expected 3 drifts, got %d: %v", len(got), got)
	}
	want := []Drift{
		{"MSFT", -0.055},
		{"AAPL", 0.042},
		{"HYG", 0.021},
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

func TestTopDriftsIdempotentAndBounded(t *testing.T) {
	drift := map[string]api.Number{
		"A": api.Num(0.05),
		"B": api.Num(-0.03),
	}
	first := TopDrifts(drift)
	second := TopDrifts(drift)
	if len(first) != len(second) {
		t.Fatalf("ranking not stable: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("ranking not stable at %d: %v vs %v", i, first[i], second[i])
		}
	}
	for _, d := range first {
		if abs(d.Value) <= driftFloor {
			t.Fatalf("drift below floor leaked through: %v", d)
		}
	}
}

func TestTopDriftsTiebreakDeterministic(t *testing.T) {
	drift := map[string]api.Number{
		"ZZZ": api.Num(0.02),
		"AAA": api.Num(-0.02),
	}
	for i := 0; i < 20; i++ {
		got := TopDrifts(drift)
		if got[0].Symbol != "AAA" || got[1].Symbol != "ZZZ" {
			t.Fatalf("equal magnitudes must order by symbol, got %v", got)
		}
	}
}

func TestFormatDrifts(t *testing.T) {
	got := FormatDrifts([]Drift{{"MSFT", -0.055}, {"AAPL", 0.042}})
	want := "MSFT -5.5%, AAPL +4.2%"
	if got != want {
		t.Fatalf("FormatDrifts = %q, want %q", got, want)
	}

	if got := FormatDrifts(nil); got != DriftPlaceholder {
		t.Fatalf("empty drifts should render the placeholder, got %q", got)
	}
}

func TestAggregateExcludesMalformedIV(t *testing.T) {
	signals := []api.Signal{
		{Symbol: "AAPL", IV: api.Num(0.2), IVR: api.Num(1.4), FearLevel: "NONE"},
		{Symbol: "MSFT", IV: api.Num(0.3), IVR: api.Num(1.9), FearLevel: "HIGH_FEAR"},
		{Symbol: "NVDA", IV: api.Number{}, IVR: api.Number{}, FearLevel: "ELEVATED_FEAR"},
	}

	m := Aggregate(signals)
	if !m.HasSignals {
		t.Fatal("HasSignals should be true")
	}
	if !m.MeanIV.Valid || math.Abs(m.MeanIV.Value-0.25) > 1e-12 {
		t.Fatalf("mean IV should exclude malformed entries: %+v", m.MeanIV)
	}
	if !m.MaxIVR.Valid || m.MaxIVR.Value != 1.9 {
		t.Fatalf("max IVR wrong: %+v", m.MaxIVR)
	}
	if m.FearCount != 2 {
		t.Fatalf("fear count should be 2, got %d", m.FearCount)
	}
}

func TestAggregateExcludesNullIVFromWire(t *testing.T) {
	var resp api.SignalsResponse
	raw := `{"regime":"NORMAL","signals":[
		{"symbol":"AAPL","iv":0.2},
		{"symbol":"MSFT","iv":0.3},
		{"symbol":"NVDA","iv":null}
	]}`
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	m := Aggregate(resp.Signals)
	if !m.MeanIV.Valid || math.Abs(m.MeanIV.Value-0.25) > 1e-12 {
		t.Fatalf("null iv must not count as zero: %+v", m.MeanIV)
	}
}

func TestClassifyNullCurrentVolFromWire(t *testing.T) {
	var portfolio api.Portfolio
	raw := `{"client":{"client_id":"margaret","target_annual_vol":0.08},
		"current_annual_vol":null,"misaligned_with_profile":false}`
	if err := json.Unmarshal([]byte(raw), &portfolio); err != nil {
		t.Fatalf("decode: %v", err)
	}

	got := Classify(portfolio.CurrentAnnualVol, portfolio.Client.TargetAnnualVol, portfolio.MisalignedWithProfile)
	if got != StatusNeutral {
		t.Fatalf("null current vol must classify NEUTRAL, got %v", got)
	}
}

func TestAggregateEmptyIsUnavailable(t *testing.T) {
	m := Aggregate(nil)
	if m.HasSignals {
		t.Fatal("empty collection must report unavailable")
	}
	if m.MeanIV.Valid || m.MaxIVR.Valid {
		t.Fatalf("no metric may claim validity on empty input: %+v", m)
	}
	if m.FearCount != 0 {
		t.Fatalf("fear count garbage on empty input: %d", m.FearCount)
	}
}

func TestAggregateNoEligibleEntries(t *testing.T) {
	m := Aggregate([]api.Signal{
		{Symbol: "AAPL", FearLevel: "NONE"},
		{Symbol: "MSFT", FearLevel: "whatever"},
	})
	if !m.HasSignals {
		t.Fatal("HasSignals should be true for a non-empty collection")
	}
	if m.MeanIV.Valid || m.MaxIVR.Valid {
		t.Fatalf("all-malformed input must leave metrics unavailable: %+v", m)
	}
	if m.FearCount != 0 {
		t.Fatalf("unknown fear levels should not count: %d", m.FearCount)
	}
}

func TestParseFearLevel(t *testing.T) {
	cases := map[string]FearLevel{
		"NONE":          FearNone,
		"ELEVATED_FEAR": FearElevated,
		"HIGH_FEAR":     FearHigh,
		"high_fear":     FearHigh,
		"":              FearNone,
		"PANIC":         FearNone,
	}
	for in, want := range cases {
		if got := ParseFearLevel(in); got != want {
			t.Fatalf("ParseFearLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestParseRiskLabelAndDefaults(t *testing.T) {
	label, err := ParseRiskLabel("aggressive")
	if err != nil || label != RiskAggressive {
		t.Fatalf("ParseRiskLabel failed: %v %v", label, err)
	}
	if _, err := ParseRiskLabel("BOLD"); err == nil {
		t.Fatal("unknown label must be rejected")
	}

	if got := RiskAggressive.DefaultTargetVol(); got != 0.18 {
		t.Fatalf("AGGRESSIVE default target vol = %v, want 0.18", got)
	}
	if got := RiskConservative.DefaultTargetVol(); got != 0.08 {
		t.Fatalf("CONSERVATIVE default target vol = %v, want 0.08", got)
	}
	if got := RiskModerate.DefaultTargetVol(); got != 0.12 {
		t.Fatalf("MODERATE default target vol = %v, want 0.12", got)
	}
}

func TestBuildCards(t *testing.T) {
	portfolios := []api.Portfolio{
		{
			Client: api.ClientProfile{
				ClientID:        "margaret",
				Name:            "Margaret Lee",
				RiskLabel:       "CONSERVATIVE",
				TargetAnnualVol: api.Num(0.10),
			},
			CurrentAnnualVol: api.Num(0.08),
			DriftFromOptimal: map[string]api.Number{
				"AAPL": api.Num(0.04),
			},
			IVAdjustedOptimal: api.OptimalPortfolio{AsOf: "2026-08-30", Sharpe: api.Num(0.9)},
		},
		{
			Client: api.ClientProfile{
				ClientID:        "liam",
				Name:            "Liam O'Brien",
				RiskLabel:       "AGGRESSIVE",
				TargetAnnualVol: api.Num(0.10),
			},
			CurrentAnnualVol: api.Num(0.20),
			DriftFromOptimal: map[string]api.Number{},
		},
	}

	cards := BuildCards(portfolios)
	if len(cards) != 2 {
		t.Fatalf("expected 2 cards, got %d", len(cards))
	}
	if cards[0].Status != StatusGood {
		t.Fatalf("margaret should be GOOD (ratio 0.8), got %s", cards[0].Status)
	}
	if cards[0].DriftSummary != "AAPL +4.0%" {
		t.Fatalf("unexpected drift summary %q", cards[0].DriftSummary)
	}
	if cards[1].Status != StatusRisk {
		t.Fatalf("liam should be RISK (ratio 2.0), got %s", cards[1].Status)
	}
	if cards[1].DriftSummary != DriftPlaceholder {
		t.Fatalf("empty drift should use placeholder, got %q", cards[1].DriftSummary)
	}
}
