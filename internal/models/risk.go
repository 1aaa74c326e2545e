package models

import "time"

// RiskDimension names a limited portfolio risk metric.
type RiskDimension string

const (
	RiskDelta RiskDimension = "DELTA"
	RiskGamma RiskDimension = "GAMMA"
	RiskVega  RiskDimension = "VEGA"
	RiskTheta RiskDimension = "THETA"
	RiskVaR   RiskDimension = "VAR"
)

// BreachSeverity grades how far outside its limit a metric sits.
type BreachSeverity string

const (
	SeverityWarning  BreachSeverity = "WARNING"
	SeverityBreach   BreachSeverity = "BREACH"
	SeverityCritical BreachSeverity = "CRITICAL"
)

// BreachEvent is one open-or-closed interval during which a risk metric
// sat outside its limit. Opened on the first evaluation outside the limit
// and closed on the first subsequent evaluation back inside it.
type BreachEvent struct {
	ID            string
	ParticipantID string
	Dimension     RiskDimension
	Severity      BreachSeverity
	Value         float64
	Limit         float64
	OpenedAt      time.Time
	ClosedAt      *time.Time
}

// IsOpen reports whether the breach interval is still open.
func (b *BreachEvent) IsOpen() bool {
	return b.ClosedAt == nil
}

// Duration returns the breach duration, measured to now for open events.
func (b *BreachEvent) Duration(now time.Time) time.Duration {
	end := now
	if b.ClosedAt != nil {
		end = *b.ClosedAt
	}
	if end.Before(b.OpenedAt) {
		return 0
	}
	return end.Sub(b.OpenedAt)
}

// Scenario is one cell of the VaR shock grid.
type Scenario struct {
	PriceShock float64 // futures price shift applied, in price units
	VolShock   float64 // implied-vol shift applied, in vol points
	PnL        float64 // portfolio P&L under the shocked state
}

// VaRResult is the output of a scenario-grid VaR estimation. VaR95 is the
// negated P&L at index floor(0.05*len) of the ascending-sorted scenario
// list; with the fixed 15-point grid that index is 0, so VaR95 reports the
// single worst scenario loss.
type VaRResult struct {
	VaR95     float64
	Scenarios []Scenario
	WorstPnL  float64
	BestPnL   float64
}
