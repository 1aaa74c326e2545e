// Package models defines the core data types shared across the simulation engine.
package models

import (
	"fmt"
	"time"
)

// InstrumentType identifies the kind of tradeable contract.
type InstrumentType string

const (
	InstrumentFuture InstrumentType = "FUTURE"
	InstrumentOption InstrumentType = "OPTION"
)

// OptionType identifies the option right.
type OptionType string

const (
	OptionCall OptionType = "CALL"
	OptionPut  OptionType = "PUT"
)

// Valid reports whether the option type is a legal value.
func (t OptionType) Valid() bool {
	return t == OptionCall || t == OptionPut
}

// Instrument describes a tradeable contract. Immutable once created:
// futures carry only a symbol, options additionally carry strike,
// expiry and the option right.
type Instrument struct {
	Symbol     string
	Type       InstrumentType
	Strike     float64
	Expiry     time.Time
	OptionType OptionType
}

// NewFuture creates a futures instrument.
func NewFuture(symbol string) Instrument {
	return Instrument{Symbol: symbol, Type: InstrumentFuture}
}

// NewOption creates an option instrument.
func NewOption(symbol string, strike float64, expiry time.Time, optType OptionType) Instrument {
	return Instrument{
		Symbol:     symbol,
		Type:       InstrumentOption,
		Strike:     strike,
		Expiry:     expiry,
		OptionType: optType,
	}
}

// IsOption reports whether the instrument is an option.
func (i Instrument) IsOption() bool {
	return i.Type == InstrumentOption
}

// Key returns a stable identity string used for position buckets and
// implied-volatility lookups. Futures key on symbol alone; options key
// on strike, expiry date and right.
func (i Instrument) Key() string {
	if !i.IsOption() {
		return i.Symbol
	}
	return fmt.Sprintf("%s:%s:%.4f:%s", i.Symbol, i.OptionType, i.Strike, i.Expiry.Format("2006-01-02"))
}

// TimeToExpiry returns the year fraction remaining until expiry.
// Expired instruments return 0, never a negative value.
func (i Instrument) TimeToExpiry(now time.Time) float64 {
	if !i.IsOption() {
		return 0
	}
	t := i.Expiry.Sub(now).Hours() / (24 * 365)
	if t < 0 {
		return 0
	}
	return t
}

// DaysToExpiry returns the number of calendar days remaining until expiry.
func (i Instrument) DaysToExpiry(now time.Time) float64 {
	d := i.Expiry.Sub(now).Hours() / 24
	if d < 0 {
		return 0
	}
	return d
}

// Moneyness returns |strike/future - 1|, the distance from the money
// used to classify ATM/OTM/deep-OTM spread bands. Futures return 0.
func (i Instrument) Moneyness(futuresPrice float64) float64 {
	if !i.IsOption() || futuresPrice <= 0 {
		return 0
	}
	m := i.Strike/futuresPrice - 1
	if m < 0 {
		m = -m
	}
	return m
}
