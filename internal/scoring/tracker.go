// Package scoring maintains per-participant equity curves, drawdown state,
// breach-time penalties and the resulting risk-adjusted score.
package scoring

import (
	"time"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// dimensionWeight returns the per-risk-dimension penalty multiplier.
func dimensionWeight(dim models.RiskDimension) float64 {
	switch dim {
	case models.RiskGamma:
		return 1.5
	case models.RiskVaR:
		return 2.0
	case models.RiskTheta:
		return 0.8
	default:
		return 1.0
	}
}

// severityWeight returns the severity multiplier for breach accrual.
func severityWeight(sev models.BreachSeverity) float64 {
	if sev == models.SeverityCritical {
		return 2.0
	}
	return 1.0
}

type openBreach struct {
	dimension   models.RiskDimension
	severity    models.BreachSeverity
	lastAccrued time.Time
}

// Tracker is the per-participant scoring state machine, driven by periodic
// equity updates and breach open/close notifications. Owned exclusively by
// the participant's worker; no internal locking.
type Tracker struct {
	participantID string
	bankroll      float64
	weights       config.ScoringConfig

	curve      []models.EquityPoint
	hwm        float64
	currentDD  float64
	maxDD      float64
	underwater bool
	ddSince    time.Time
	ddPeriods  int
	ddTotal    time.Duration

	breachSeconds float64 // severity- and dimension-weighted
	openBreaches  map[models.RiskDimension]*openBreach

	realizedPnL float64
	totalFees   float64
}

// NewTracker creates a scoring tracker with the given initial bankroll.
func NewTracker(participantID string, bankroll float64, weights config.ScoringConfig) *Tracker {
	return &Tracker{
		participantID: participantID,
		bankroll:      bankroll,
		weights:       weights,
		hwm:           bankroll,
		openBreaches:  make(map[models.RiskDimension]*openBreach),
	}
}

// UpdateEquity records a new equity sample, advancing the high-water mark
// or the drawdown state. Exceeding the previous peak closes any open
// underwater period; falling below it opens or extends one and updates the
// maximum drawdown when the current drawdown is a new worst.
func (t *Tracker) UpdateEquity(realizedPnL, unrealizedPnL float64, ts time.Time) {
	t.realizedPnL = realizedPnL
	equity := t.bankroll + realizedPnL + unrealizedPnL
	t.curve = append(t.curve, models.EquityPoint{Timestamp: ts, Equity: equity})

	if equity >= t.hwm {
		t.hwm = equity
		t.currentDD = 0
		if t.underwater {
			t.underwater = false
			t.ddTotal += ts.Sub(t.ddSince)
		}
		return
	}

	t.currentDD = t.hwm - equity
	if t.currentDD > t.maxDD {
		t.maxDD = t.currentDD
	}
	if !t.underwater {
		t.underwater = true
		t.ddSince = ts
		t.ddPeriods++
	}
}

// OnBreachOpened starts penalty accrual for a breach event.
func (t *Tracker) OnBreachOpened(ev models.BreachEvent) {
	t.openBreaches[ev.Dimension] = &openBreach{
		dimension:   ev.Dimension,
		severity:    ev.Severity,
		lastAccrued: ev.OpenedAt,
	}
}

// OnBreachClosed accrues the final interval and stops accrual.
func (t *Tracker) OnBreachClosed(ev models.BreachEvent) {
	ob, ok := t.openBreaches[ev.Dimension]
	if !ok {
		return
	}
	end := ev.OpenedAt
	if ev.ClosedAt != nil {
		end = *ev.ClosedAt
	}
	t.accrue(ob, end)
	delete(t.openBreaches, ev.Dimension)
}

// Accrue advances penalty accrual for all open breaches up to now.
// Severity escalation applies from the next accrual interval onward.
func (t *Tracker) Accrue(now time.Time, severities map[models.RiskDimension]models.BreachSeverity) {
	for dim, ob := range t.openBreaches {
		if sev, ok := severities[dim]; ok {
			ob.severity = sev
		}
		t.accrue(ob, now)
	}
}

func (t *Tracker) accrue(ob *openBreach, until time.Time) {
	if !until.After(ob.lastAccrued) {
		return
	}
	secs := until.Sub(ob.lastAccrued).Seconds()
	t.breachSeconds += secs * severityWeight(ob.severity) * dimensionWeight(ob.dimension)
	ob.lastAccrued = until
}

// AddFees accumulates trading costs for the fee penalty term.
func (t *Tracker) AddFees(fees float64) {
	t.totalFees += fees
}

// ComputeScore produces the itemized risk-adjusted score:
//
//	adjusted = realizedPnL - (alpha*breachSeconds + beta*max(0, VaR-limit) +
//	           gamma*maxDrawdown + delta*totalFees)
//
// DisplayScore floors at zero for presentation; AdjustedScore stays
// unfloored for ranking and tie-breaks.
func (t *Tracker) ComputeScore(var95, varLimit float64, now time.Time) models.ScoreResult {
	varExcess := var95 - varLimit
	if varExcess < 0 {
		varExcess = 0
	}

	r := models.ScoreResult{
		ParticipantID:   t.participantID,
		RealizedPnL:     t.realizedPnL,
		BreachPenalty:   t.weights.BreachWeight * t.breachSeconds,
		VaRPenalty:      t.weights.VaRWeight * varExcess,
		DrawdownPenalty: t.weights.DrawdownWeight * t.maxDD,
		FeePenalty:      t.weights.FeeWeight * t.totalFees,
		ComputedAt:      now,
	}
	r.AdjustedScore = r.RealizedPnL - r.BreachPenalty - r.VaRPenalty - r.DrawdownPenalty - r.FeePenalty
	r.DisplayScore = r.AdjustedScore
	if r.DisplayScore < 0 {
		r.DisplayScore = 0
	}
	return r
}

// Drawdown returns the current drawdown state.
func (t *Tracker) Drawdown() models.DrawdownState {
	return models.DrawdownState{
		HighWaterMark:     t.hwm,
		CurrentDrawdown:   t.currentDD,
		MaxDrawdown:       t.maxDD,
		UnderwaterPeriods: t.ddPeriods,
		UnderwaterTime:    t.ddTotal,
		Underwater:        t.underwater,
	}
}

// Equity returns the latest equity sample, or the bankroll before any update.
func (t *Tracker) Equity() float64 {
	if len(t.curve) == 0 {
		return t.bankroll
	}
	return t.curve[len(t.curve)-1].Equity
}

// Curve returns a copy of the equity curve.
func (t *Tracker) Curve() []models.EquityPoint {
	out := make([]models.EquityPoint, len(t.curve))
	copy(out, t.curve)
	return out
}

// Reset clears all scoring history at a day boundary: equity curve, peak,
// drawdown counters, breach accrual and fee totals. Positions and
// cumulative P&L persist outside the tracker.
func (t *Tracker) Reset() {
	t.curve = nil
	t.hwm = t.bankroll
	t.currentDD = 0
	t.maxDD = 0
	t.underwater = false
	t.ddPeriods = 0
	t.ddTotal = 0
	t.breachSeconds = 0
	t.openBreaches = make(map[models.RiskDimension]*openBreach)
	t.realizedPnL = 0
	t.totalFees = 0
}
