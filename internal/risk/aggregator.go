// Package risk aggregates position-level Greeks to portfolio level and
// estimates scenario-grid Value-at-Risk. Aggregation reads frozen market
// snapshots only and never mutates positions.
package risk

import (
	"sort"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/pricing"
)

const oneDay = 1.0 / 365

// priceShockSigmas and volShockSteps define the fixed 5x3 scenario grid.
var (
	priceShockSigmas = []float64{-2, -1, 0, 1, 2}
	volShockSteps    = []float64{-1, 0, 1}
)

// Aggregator computes portfolio Greeks and VaR for a position set.
type Aggregator struct {
	kernel     *pricing.Kernel
	multiplier float64
	fallbackIV float64
}

// NewAggregator creates a portfolio risk aggregator.
func NewAggregator(kernel *pricing.Kernel, multiplier, fallbackIV float64) *Aggregator {
	if multiplier <= 0 {
		multiplier = 1
	}
	if fallbackIV <= 0 {
		fallbackIV = 0.25
	}
	return &Aggregator{kernel: kernel, multiplier: multiplier, fallbackIV: fallbackIV}
}

// Aggregate sums position-level Greeks across the portfolio. Futures
// contribute only delta. Portfolio theta is the one-day-forward change in
// total portfolio value rather than a sum of per-option thetas, so that
// cross-position expiry effects are captured.
func (a *Aggregator) Aggregate(positions []*models.Position, mkt *models.MarketState) models.Greeks {
	var total models.Greeks
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		scale := float64(pos.Quantity) * a.multiplier

		if !pos.Instrument.IsOption() {
			total.Delta += scale
			total.Price += float64(pos.Quantity) * mkt.FuturesPrice * a.multiplier
			continue
		}

		g := a.kernel.Greeks(
			mkt.FuturesPrice,
			pos.Instrument.Strike,
			pos.Instrument.TimeToExpiry(mkt.Timestamp),
			mkt.VolFor(pos.Instrument, a.fallbackIV),
			mkt.RiskFreeRate,
			pos.Instrument.OptionType,
		)
		scaled := g.Scale(scale)
		total.Price += scaled.Price
		total.Delta += scaled.Delta
		total.Gamma += scaled.Gamma
		total.Vega += scaled.Vega
		total.Vanna += scaled.Vanna
		total.Vomma += scaled.Vomma
	}

	// Whole-portfolio one-day theta.
	base := a.PortfolioValue(positions, mkt, 0, 0, 0)
	forward := a.PortfolioValue(positions, mkt, 0, 0, oneDay)
	total.Theta = forward - base

	return total
}

// PortfolioValue revalues the whole portfolio with the futures price
// shifted by priceShift, every implied vol shifted by volShift, and every
// option's time-to-expiry reduced by timeShift years. Futures positions
// are marked linearly; options are repriced through the kernel.
func (a *Aggregator) PortfolioValue(positions []*models.Position, mkt *models.MarketState, priceShift, volShift, timeShift float64) float64 {
	f := mkt.FuturesPrice + priceShift
	var value float64
	for _, pos := range positions {
		if pos.Quantity == 0 {
			continue
		}
		scale := float64(pos.Quantity) * a.multiplier

		if !pos.Instrument.IsOption() {
			value += scale * f
			continue
		}

		sigma := mkt.VolFor(pos.Instrument, a.fallbackIV) + volShift
		if sigma < 0.001 {
			sigma = 0.001
		}
		t := pos.Instrument.TimeToExpiry(mkt.Timestamp) - timeShift
		value += scale * a.kernel.Price(f, pos.Instrument.Strike, t, sigma,
			mkt.RiskFreeRate, pos.Instrument.OptionType)
	}
	return value
}

// EstimateVaR revalues the portfolio over the fixed 15-point scenario grid:
// price shocks of {-2,-1,0,+1,+2} times the configured daily price
// volatility crossed with vol shocks of {-ivShock, 0, +ivShock}. VaR95 is
// the negated P&L at index floor(0.05*15) = 0 of the ascending-sorted
// scenario list, i.e. the single worst scenario in this grid. The source
// model defines the "5th percentile" exactly this way and the selection
// rule is preserved as-is.
func (a *Aggregator) EstimateVaR(positions []*models.Position, mkt *models.MarketState, dailyPriceVol, ivShock float64) models.VaRResult {
	if len(positions) == 0 || !hasOpenPosition(positions) {
		return models.VaRResult{}
	}

	base := a.PortfolioValue(positions, mkt, 0, 0, 0)

	scenarios := make([]models.Scenario, 0, len(priceShockSigmas)*len(volShockSteps))
	for _, ns := range priceShockSigmas {
		priceShift := ns * dailyPriceVol * mkt.FuturesPrice
		for _, vs := range volShockSteps {
			volShift := vs * ivShock
			pnl := a.PortfolioValue(positions, mkt, priceShift, volShift, 0) - base
			scenarios = append(scenarios, models.Scenario{
				PriceShock: priceShift,
				VolShock:   volShift,
				PnL:        pnl,
			})
		}
	}

	pnls := make([]float64, len(scenarios))
	for i, s := range scenarios {
		pnls[i] = s.PnL
	}
	sort.Float64s(pnls)

	idx := int(0.05 * float64(len(pnls))) // 0 for the 15-point grid
	return models.VaRResult{
		VaR95:     -pnls[idx],
		Scenarios: scenarios,
		WorstPnL:  pnls[0],
		BestPnL:   pnls[len(pnls)-1],
	}
}

func hasOpenPosition(positions []*models.Position) bool {
	for _, p := range positions {
		if p.Quantity != 0 {
			return true
		}
	}
	return false
}

// Finding is one limit comparison result for a single risk dimension.
type Finding struct {
	Dimension models.RiskDimension
	Severity  models.BreachSeverity
	Value     float64
	Limit     float64
}

// CheckLimits compares portfolio Greeks and VaR against the configured
// caps. Pure: it mutates nothing and leaves breach lifecycle transitions
// to the caller. Findings are graded warning (inside the cap but past the
// warning ratio), breach (past the cap) or critical (past the critical
// multiple of the cap).
func CheckLimits(g models.Greeks, vr models.VaRResult, rc config.RiskConfig) []Finding {
	var findings []Finding

	check := func(dim models.RiskDimension, value, limit float64) {
		if limit <= 0 {
			return
		}
		mag := value
		if mag < 0 {
			mag = -mag
		}
		switch {
		case mag > limit*rc.CriticalRatio:
			findings = append(findings, Finding{dim, models.SeverityCritical, value, limit})
		case mag > limit:
			findings = append(findings, Finding{dim, models.SeverityBreach, value, limit})
		case mag > limit*rc.WarningRatio:
			findings = append(findings, Finding{dim, models.SeverityWarning, value, limit})
		}
	}

	check(models.RiskDelta, g.Delta, rc.DeltaCap)
	check(models.RiskGamma, g.Gamma, rc.GammaCap)
	check(models.RiskVega, g.Vega, rc.VegaCap)
	check(models.RiskTheta, g.Theta, rc.ThetaCap)
	check(models.RiskVaR, vr.VaR95, rc.VaRLimit)

	return findings
}
