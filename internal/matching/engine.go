// Package matching implements the fill/matching engine: it validates and
// classifies incoming orders, prices them against the current market
// snapshot and decides fill versus rest. Decisions are deterministic
// functions of the order and the snapshot, which is what makes resting
// order re-evaluation idempotent.
package matching

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/config"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/models"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/pricing"
	"github.com/ai-wonderlab/commodity-options-training-game-sub001/internal/spread"
)

// Result describes the outcome of submitting or re-evaluating an order.
// The returned Order carries the updated lifecycle status; Fill is non-nil
// only for Filled outcomes.
type Result struct {
	Order       models.Order
	Fill        *models.Fill
	Quote       spread.Quote
	Theoretical float64
}

// Engine prices and matches orders against a synthetic market built from
// the pricing kernel and the spread model. The engine itself holds no
// per-order state; pending books live with the owning participant worker.
type Engine struct {
	kernel  *pricing.Kernel
	spreads *spread.Model
	pcfg    config.PricingConfig
	logger  zerolog.Logger
}

// NewEngine creates a matching engine.
func NewEngine(kernel *pricing.Kernel, spreads *spread.Model, pcfg config.PricingConfig, logger zerolog.Logger) *Engine {
	return &Engine{
		kernel:  kernel,
		spreads: spreads,
		pcfg:    pcfg,
		logger:  logger.With().Str("component", "matching").Logger(),
	}
}

// Submit validates an order and resolves it against the market snapshot.
// Market orders fill at the quote mid. Limit buys fill when the limit
// crosses the ask, limit sells when the limit crosses the bid; otherwise
// the order rests Pending. Validation failures reject immediately with a
// reason code and no side effects.
func (e *Engine) Submit(order models.Order, mkt *models.MarketState) Result {
	if reason := e.validate(&order, mkt); reason != models.RejectNone {
		order.Status = models.OrderStatusRejected
		order.Reason = reason
		e.logger.Debug().
			Str("order_id", order.ID).
			Str("participant", order.ParticipantID).
			Str("reason", string(reason)).
			Msg("order rejected")
		return Result{Order: order}
	}
	return e.resolve(order, mkt)
}

// Reevaluate re-checks a Pending order against a new market snapshot.
// Re-evaluating against an unchanged snapshot returns the identical
// Pending result; the decision depends only on the order and snapshot, so
// it can never double-fill.
func (e *Engine) Reevaluate(order models.Order, mkt *models.MarketState) Result {
	if order.Status != models.OrderStatusPending {
		return Result{Order: order}
	}
	return e.resolve(order, mkt)
}

// Cancel transitions a Pending order to Cancelled. Terminal orders are
// returned unchanged; linearization with racing fills is the owning
// worker's responsibility.
func (e *Engine) Cancel(order models.Order) models.Order {
	if order.Status == models.OrderStatusPending {
		order.Status = models.OrderStatusCancelled
	}
	return order
}

func (e *Engine) validate(order *models.Order, mkt *models.MarketState) models.RejectReason {
	if order.Quantity <= 0 {
		return models.RejectNonPositiveQty
	}
	switch order.Side {
	case models.OrderSideBuy, models.OrderSideSell:
	default:
		return models.RejectUnknownSide
	}
	switch order.Style {
	case models.OrderStyleMarket:
	case models.OrderStyleLimit:
		if order.LimitPrice <= 0 {
			return models.RejectMissingLimit
		}
	default:
		return models.RejectUnknownStyle
	}

	if order.Instrument.IsOption() {
		if order.Instrument.Strike <= 0 || order.Instrument.Expiry.IsZero() ||
			!order.Instrument.OptionType.Valid() {
			return models.RejectInvalidOption
		}
		if !order.Instrument.Expiry.After(mkt.Timestamp) {
			return models.RejectExpiredOption
		}
	}
	return models.RejectNone
}

// resolve prices the instrument, builds the quote and applies the fill
// rules. It never mutates the snapshot and touches nothing outside the
// order value it was handed.
func (e *Engine) resolve(order models.Order, mkt *models.MarketState) Result {
	theo := e.theoretical(order, mkt)
	quote := e.spreads.Quote(theo, order.Instrument, mkt.FuturesPrice,
		order.Instrument.DaysToExpiry(mkt.Timestamp))

	var fillPrice float64
	filled := false

	switch order.Style {
	case models.OrderStyleMarket:
		fillPrice = quote.Mid
		filled = true
	case models.OrderStyleLimit:
		if order.Side == models.OrderSideBuy && order.LimitPrice >= quote.Ask {
			fillPrice = min(order.LimitPrice, quote.Ask)
			filled = true
		} else if order.Side == models.OrderSideSell && order.LimitPrice <= quote.Bid {
			fillPrice = max(order.LimitPrice, quote.Bid)
			filled = true
		}
	}

	if !filled {
		order.Status = models.OrderStatusPending
		return Result{Order: order, Quote: quote, Theoretical: theo}
	}

	fill := &models.Fill{
		ID:            uuid.NewString(),
		OrderID:       order.ID,
		ParticipantID: order.ParticipantID,
		Instrument:    order.Instrument,
		Side:          order.Side,
		Price:         fillPrice,
		Quantity:      order.Quantity,
		Fees:          e.spreads.Fees(order.Quantity, fillPrice),
		Theoretical:   theo,
		QuoteBid:      quote.Bid,
		QuoteAsk:      quote.Ask,
		Timestamp:     mkt.Timestamp,
	}
	order.Status = models.OrderStatusFilled

	e.logger.Debug().
		Str("order_id", order.ID).
		Str("participant", order.ParticipantID).
		Str("side", string(order.Side)).
		Int("qty", fill.Quantity).
		Float64("price", fill.Price).
		Float64("fees", fill.Fees).
		Msg("order filled")

	return Result{Order: order, Fill: fill, Quote: quote, Theoretical: theo}
}

// theoretical returns the model price for the order's instrument: the
// futures price itself for futures, the Black-76 value for options with
// the snapshot's implied vol or a bounded override.
func (e *Engine) theoretical(order models.Order, mkt *models.MarketState) float64 {
	if !order.Instrument.IsOption() {
		return mkt.FuturesPrice
	}

	sigma := mkt.VolFor(order.Instrument, e.pcfg.FallbackIV)
	if order.IVOverride != nil {
		sigma = e.clampIV(*order.IVOverride, order.Instrument, mkt.FuturesPrice)
	}

	t := order.Instrument.TimeToExpiry(mkt.Timestamp)
	return e.kernel.Price(mkt.FuturesPrice, order.Instrument.Strike, t, sigma,
		mkt.RiskFreeRate, order.Instrument.OptionType)
}

// clampIV bounds an IV override into the configured [min,max] window.
// Strikes beyond the deep-moneyness band get a tighter ceiling, since an
// aggressive vol override on a far-from-the-money option distorts prices
// the most.
func (e *Engine) clampIV(iv float64, inst models.Instrument, futuresPrice float64) float64 {
	hi := e.pcfg.IVMax
	if inst.Moneyness(futuresPrice) > 0.15 && e.pcfg.IVMaxExtreme > 0 {
		hi = e.pcfg.IVMaxExtreme
	}
	if iv < e.pcfg.IVMin {
		return e.pcfg.IVMin
	}
	if iv > hi {
		return hi
	}
	return iv
}
