// Package spread converts theoretical mid prices into bid/ask quotes and
// computes trading costs. All outputs are deterministic pure functions of
// the session configuration and the inputs.
package spread

import (
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// Quote is a two-sided market around a theoretical mid.
type Quote struct {
	Bid float64
	Ask float64
	Mid float64
}

// Model selects spread widths from a small decision table and computes
// fees. Stateless given its configuration.
type Model struct {
	spreads    config.SpreadConfig
	fees       config.FeeConfig
	multiplier float64
}

// New creates a spread and fee model.
func New(spreads config.SpreadConfig, fees config.FeeConfig, multiplier float64) *Model {
	if multiplier <= 0 {
		multiplier = 1
	}
	return &Model{spreads: spreads, fees: fees, multiplier: multiplier}
}

// Quote builds a bid/ask around the theoretical mid. Futures use front- vs
// back-month bands; options use ATM/OTM/deep-OTM bands chosen by moneyness,
// widened by a fixed factor inside the near-expiry window.
func (m *Model) Quote(mid float64, inst models.Instrument, futuresPrice, daysToExpiry float64) Quote {
	bps := m.widthBps(inst, futuresPrice, daysToExpiry)
	half := mid * bps / 10000 / 2
	if half < 0 {
		half = 0
	}

	bid := mid - half
	if bid < 0 {
		bid = 0
	}
	return Quote{Bid: bid, Ask: mid + half, Mid: mid}
}

// widthBps is the spread decision table.
func (m *Model) widthBps(inst models.Instrument, futuresPrice, daysToExpiry float64) float64 {
	var bps float64
	if !inst.IsOption() {
		if daysToExpiry > 0 && daysToExpiry > m.spreads.FrontMonthDays {
			bps = m.spreads.FuturesBackBps
		} else {
			bps = m.spreads.FuturesFrontBps
		}
		return bps
	}

	moneyness := inst.Moneyness(futuresPrice)
	switch {
	case moneyness <= m.spreads.ATMThreshold:
		bps = m.spreads.OptionATMBps
	case moneyness <= m.spreads.DeepThreshold:
		bps = m.spreads.OptionOTMBps
	default:
		bps = m.spreads.OptionDeepBps
	}

	if daysToExpiry < m.spreads.NearExpiryDays {
		bps *= m.spreads.NearExpiryFactor
	}
	return bps
}

// Fees computes total trading costs for a fill: a per-contract fee plus a
// regulatory fee on notional, clamped into the configured min/max totals.
func (m *Model) Fees(quantity int, fillPrice float64) float64 {
	if quantity <= 0 {
		return 0
	}
	notional := fillPrice * float64(quantity) * m.multiplier
	total := m.fees.PerContract*float64(quantity) + m.fees.RegulatoryRate*notional

	if total < m.fees.MinTotal {
		total = m.fees.MinTotal
	}
	if m.fees.MaxTotal > 0 && total > m.fees.MaxTotal {
		total = m.fees.MaxTotal
	}
	return total
}
