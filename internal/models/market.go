package models

import "time"

// MarketState is an immutable per-tick snapshot of the synthetic market:
// the futures price, the risk-free rate and the implied-volatility surface
// keyed by option identity. A new snapshot is published for every tick;
// existing snapshots are never mutated, so any number of participant
// workers may read the same snapshot concurrently.
type MarketState struct {
	FuturesPrice float64
	RiskFreeRate float64
	impliedVols  map[string]float64
	Timestamp    time.Time
	Version      uint64
}

// NewMarketState builds a snapshot, copying the implied-vol map so the
// caller cannot mutate the snapshot after publication.
func NewMarketState(futuresPrice, riskFreeRate float64, impliedVols map[string]float64, ts time.Time, version uint64) *MarketState {
	vols := make(map[string]float64, len(impliedVols))
	for k, v := range impliedVols {
		vols[k] = v
	}
	return &MarketState{
		FuturesPrice: futuresPrice,
		RiskFreeRate: riskFreeRate,
		impliedVols:  vols,
		Timestamp:    ts,
		Version:      version,
	}
}

// VolFor returns the implied volatility for an instrument, falling back
// to the supplied default when the surface has no entry for it.
func (m *MarketState) VolFor(inst Instrument, fallback float64) float64 {
	if v, ok := m.impliedVols[inst.Key()]; ok && v > 0 {
		return v
	}
	return fallback
}

// HasVol reports whether the surface carries a volatility for the instrument.
func (m *MarketState) HasVol(inst Instrument) bool {
	_, ok := m.impliedVols[inst.Key()]
	return ok
}
