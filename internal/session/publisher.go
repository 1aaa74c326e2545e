// Package session orchestrates a simulation session: one actor-style
// worker per participant owning that participant's positions, pending
// orders and scoring state, fed by immutable market snapshots from a
// single publisher.
package session

import (
	"sync/atomic"
	"time"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
)

// Tick is the raw per-tick market input consumed from the external feed.
type Tick struct {
	FuturesPrice float64
	RiskFreeRate float64
	ImpliedVols  map[string]float64 // keyed by Instrument.Key()
	Timestamp    time.Time
}

// Publisher turns raw ticks into versioned immutable MarketState snapshots.
// The latest snapshot is swapped in atomically, so readers either see the
// previous complete snapshot or the new one, never a half-updated tick.
type Publisher struct {
	latest  atomic.Pointer[models.MarketState]
	version atomic.Uint64
}

// NewPublisher creates a snapshot publisher.
func NewPublisher() *Publisher {
	return &Publisher{}
}

// Publish builds a new snapshot from the tick and installs it as latest.
func (p *Publisher) Publish(tick Tick) *models.MarketState {
	v := p.version.Add(1)
	snap := models.NewMarketState(tick.FuturesPrice, tick.RiskFreeRate, tick.ImpliedVols, tick.Timestamp, v)
	p.latest.Store(snap)
	return snap
}

// Latest returns the most recently published snapshot, or nil before the
// first tick.
func (p *Publisher) Latest() *models.MarketState {
	return p.latest.Load()
}
