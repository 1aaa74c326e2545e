package models

import "time"

// EquityPoint is one sample of a participant's total equity.
type EquityPoint struct {
	Timestamp time.Time
	Equity    float64
}

// DrawdownState summarizes a participant's equity curve: the running
// high-water mark, the current peak-to-trough drawdown, the worst drawdown
// seen, and how often and for how long equity has sat below the peak.
type DrawdownState struct {
	HighWaterMark     float64
	CurrentDrawdown   float64
	MaxDrawdown       float64
	UnderwaterPeriods int
	UnderwaterTime    time.Duration
	Underwater        bool
}

// ScoreResult itemizes a participant's risk-adjusted score.
// AdjustedScore is the unfloored value used for ranking; DisplayScore is
// floored at zero for presentation.
type ScoreResult struct {
	ParticipantID   string
	RealizedPnL     float64
	BreachPenalty   float64
	VaRPenalty      float64
	DrawdownPenalty float64
	FeePenalty      float64
	AdjustedScore   float64
	DisplayScore    float64
	ComputedAt      time.Time
}
