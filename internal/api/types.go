package api

import (
	"encoding/json"
	"math"
	"strconv"
)

// Number is a JSON number that tolerates malformed input. Upstream data
// quality is outside this layer's control: a field may arrive as a string,
// null, or garbage, and decoding must not fail the whole response. Consumers
// check Valid before using Value.
type Number struct {
	Value float64
	Valid bool
}

// Num builds a valid Number, mainly for tests and fixtures.
func Num(v float64) Number {
	return Number{Value: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	n.Value, n.Valid = 0, false

	// json.Unmarshal leaves a float64 untouched on null and reports no
	// error, which would surface as a valid zero.
	if string(data) == "null" {
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*n = Num(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			*n = Num(f)
		}
		return nil
	}

	// null, objects, arrays: stay invalid without failing the decode.
	return nil
}

// Advisor identifies the logged-in advisor.
type Advisor struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// LoginResponse is returned by POST /api/auth/login.
type LoginResponse struct {
	Token   string  `json:"token"`
	Advisor Advisor `json:"advisor"`
}

// MeResponse is returned by GET /api/auth/me.
type MeResponse struct {
	Advisor Advisor `json:"advisor"`
}

// HealthResponse is returned by GET /api/health (no auth).
type HealthResponse struct {
	Status  string `json:"status"`
	App     string `json:"app"`
	Version string `json:"version"`
}

// UniverseResponse carries the ticker universe and the prevailing regime.
type UniverseResponse struct {
	Tickers []string `json:"tickers"`
	Regime  string   `json:"regime"`
}

// Signal is one per-symbol options-implied risk reading.
type Signal struct {
	Symbol            string `json:"symbol"`
	IV                Number `json:"iv"`
	PredictedHV       Number `json:"predicted_hv"`
	IVR               Number `json:"ivr"`
	IVPercentile      Number `json:"iv_percentile"`
	Regime            string `json:"regime"`
	FearLevel         string `json:"fear_level"`
	RecommendedAction string `json:"recommended_action"`
}

// SignalsResponse is returned by GET /api/signals.
type SignalsResponse struct {
	Regime  string   `json:"regime"`
	Signals []Signal `json:"signals"`
}

// ClientProfile is an advisory client record.
type ClientProfile struct {
	ClientID        string `json:"client_id"`
	Name            string `json:"name"`
	RiskLabel       string `json:"risk_label"`
	TargetAnnualVol Number `json:"target_annual_vol"`
}

// OptimalPortfolio describes one optimizer output (baseline or IV-adjusted).
type OptimalPortfolio struct {
	AsOf           string            `json:"as_of"`
	Weights        map[string]Number `json:"weights"`
	ExpectedReturn Number            `json:"expected_return"`
	ExpectedVol    Number            `json:"expected_vol"`
	Sharpe         Number            `json:"sharpe"`
}

// Portfolio is one client's holdings compared against the optimizer.
type Portfolio struct {
	Client                ClientProfile     `json:"client"`
	CurrentWeights        map[string]Number `json:"current_weights"`
	BaselineOptimal       OptimalPortfolio  `json:"baseline_optimal"`
	IVAdjustedOptimal     OptimalPortfolio  `json:"iv_adjusted_optimal"`
	DriftFromOptimal      map[string]Number `json:"drift_from_optimal"`
	CurrentAnnualVol      Number            `json:"current_annual_vol"`
	MisalignedWithProfile bool              `json:"misaligned_with_profile"`
}

// PortfoliosResponse is returned by GET /api/portfolios.
type PortfoliosResponse struct {
	Portfolios []Portfolio `json:"portfolios"`
}

// StressScenario is a read-only stress-test display entity.
type StressScenario struct {
	Name                       string `json:"name"`
	Description                string `json:"description"`
	PortfolioLossPctCurrent    Number `json:"portfolio_loss_pct_current"`
	PortfolioLossPctIVAdjusted Number `json:"portfolio_loss_pct_iv_adjusted"`
}

// StressTestsResponse is returned by GET /api/stress-tests.
type StressTestsResponse struct {
	Scenarios []StressScenario `json:"scenarios"`
}

// FearSignal is the reduced signal embedded in a narrative.
type FearSignal struct {
	Symbol            string `json:"symbol"`
	IVR               Number `json:"ivr"`
	FearLevel         string `json:"fear_level"`
	RecommendedAction string `json:"recommended_action"`
}

// Narrative is a generated plain-language portfolio explanation.
type Narrative struct {
	ClientID       string       `json:"client_id"`
	Title          string       `json:"title"`
	Body           string       `json:"body"`
	KeyPoints      []string     `json:"key_points"`
	Regime         string       `json:"regime"`
	TopFearSignals []FearSignal `json:"top_fear_signals"`
}

// CreateClientRequest is the payload for POST /api/clients.
type CreateClientRequest struct {
	Name            string  `json:"name"`
	RiskLabel       string  `json:"risk_label"`
	TargetAnnualVol float64 `json:"target_annual_vol"`
}

// OptionsIVResponse is returned by GET /api/options-iv.
type OptionsIVResponse struct {
	IV      map[string]Number `json:"iv"`
	Errors  map[string]string `json:"errors"`
	Refresh bool              `json:"refresh"`
}
