package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// RefreshRecord is one persisted watch-mode refresh cycle. Metrics that were
// unavailable (empty or fully malformed signal collection) persist as NULL,
// never as zero.
type RefreshRecord struct {
	Bucket      time.Time
	Regime      string
	MeanIV      *decimal.Decimal
	MaxIVR      *decimal.Decimal
	FearCount   *int32
	SignalCount int
	ClientCount int
	RiskCount   int
	Status      string
	Error       *string
	CreatedAt   time.Time
}

// ClientStatusRecord captures one client's derived status at a refresh.
type ClientStatusRecord struct {
	Bucket       time.Time
	ClientID     string
	Name         string
	RiskLabel    string
	Status       string
	VolRatio     *decimal.Decimal
	Misaligned   bool
	DriftSummary string
}

// AlertRecord captures an emitted risk-transition alert for auditing.
type AlertRecord struct {
	ID         int64
	Bucket     time.Time
	ClientID   string
	ClientName string
	Status     string
	PrevStatus string
	VolRatio   *decimal.Decimal
	Channels   []string
	CreatedAt  time.Time
}
