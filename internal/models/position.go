package models

// Position tracks a participant's signed net quantity in one instrument
// together with the volume-weighted average entry price and the realized
// P&L accumulated from closing trades. A position is mutated only by
// applying fills, and only by the owning participant's worker.
type Position struct {
	ParticipantID string
	Instrument    Instrument
	Quantity      int // signed: positive long, negative short
	AvgPrice      float64
	RealizedPnL   float64
	Multiplier    float64 // contract multiplier, units of underlying per contract
}

// NewPosition creates an empty position for an instrument.
func NewPosition(participantID string, inst Instrument, multiplier float64) *Position {
	if multiplier <= 0 {
		multiplier = 1
	}
	return &Position{
		ParticipantID: participantID,
		Instrument:    inst,
		Multiplier:    multiplier,
	}
}

// ApplyFill folds a fill into the position using weighted-average-cost
// accounting: same-direction adds recompute the average price as a
// volume-weighted blend; reducing trades realize P&L proportionally to
// the quantity closed; a fill that flips the position direction opens
// the residual at the fill price.
func (p *Position) ApplyFill(f Fill) {
	signed := f.SignedQuantity()
	if signed == 0 {
		return
	}

	if p.Quantity == 0 || sameSign(p.Quantity, signed) {
		oldAbs := abs(p.Quantity)
		addAbs := abs(signed)
		p.AvgPrice = (float64(oldAbs)*p.AvgPrice + float64(addAbs)*f.Price) / float64(oldAbs+addAbs)
		p.Quantity += signed
		return
	}

	// Reducing or flipping.
	closeQty := abs(signed)
	if closeQty > abs(p.Quantity) {
		closeQty = abs(p.Quantity)
	}
	perUnit := f.Price - p.AvgPrice
	if p.Quantity < 0 {
		perUnit = p.AvgPrice - f.Price
	}
	p.RealizedPnL += float64(closeQty) * perUnit * p.Multiplier

	p.Quantity += signed
	switch {
	case p.Quantity == 0:
		p.AvgPrice = 0
	case !sameSign(p.Quantity, -signed):
		// Direction flipped: the residual quantity opened at the fill price.
		p.AvgPrice = f.Price
	}
}

// UnrealizedPnL marks the open quantity against the given price.
func (p *Position) UnrealizedPnL(markPrice float64) float64 {
	if p.Quantity == 0 {
		return 0
	}
	return float64(p.Quantity) * (markPrice - p.AvgPrice) * p.Multiplier
}

// Notional returns the absolute exposure at the given price.
func (p *Position) Notional(markPrice float64) float64 {
	n := float64(p.Quantity) * markPrice * p.Multiplier
	if n < 0 {
		n = -n
	}
	return n
}

// Clone returns an independent copy, used when freezing snapshots for
// cross-participant reads.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}

func sameSign(a, b int) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
