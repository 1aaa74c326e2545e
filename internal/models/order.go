package models

import "time"

// OrderSide represents the direction of an order.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// OrderStyle represents the execution style of an order.
type OrderStyle string

const (
	OrderStyleMarket OrderStyle = "MARKET"
	OrderStyleLimit  OrderStyle = "LIMIT"
)

// OrderStatus is the lifecycle state of an order.
// Pending -> {Filled, PartiallyFilled, Cancelled, Rejected};
// Filled, Cancelled and Rejected are terminal.
type OrderStatus string

const (
	OrderStatusPending         OrderStatus = "PENDING"
	OrderStatusFilled          OrderStatus = "FILLED"
	OrderStatusPartiallyFilled OrderStatus = "PARTIALLY_FILLED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusRejected        OrderStatus = "REJECTED"
)

// RejectReason is a machine-readable code explaining an order rejection.
type RejectReason string

const (
	RejectNone             RejectReason = ""
	RejectNonPositiveQty   RejectReason = "NON_POSITIVE_QUANTITY"
	RejectMissingLimit     RejectReason = "MISSING_LIMIT_PRICE"
	RejectInvalidOption    RejectReason = "INVALID_OPTION"
	RejectExpiredOption    RejectReason = "EXPIRED_OPTION"
	RejectUnknownStyle     RejectReason = "UNKNOWN_ORDER_STYLE"
	RejectUnknownSide      RejectReason = "UNKNOWN_ORDER_SIDE"
	RejectSessionNotActive RejectReason = "SESSION_NOT_ACTIVE"
)

// Order represents a participant's request to trade an instrument.
type Order struct {
	ID            string
	ParticipantID string
	Side          OrderSide
	Style         OrderStyle
	Instrument    Instrument
	Quantity      int
	LimitPrice    float64
	IVOverride    *float64 // optional; clamped into configured bounds before pricing
	Status        OrderStatus
	Reason        RejectReason
	CreatedAt     time.Time
}

// IsTerminal reports whether the order can no longer change state.
func (o *Order) IsTerminal() bool {
	switch o.Status {
	case OrderStatusFilled, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Fill records an execution produced by the matching engine. Append-only:
// a fill is never modified after creation.
type Fill struct {
	ID            string
	OrderID       string
	ParticipantID string
	Instrument    Instrument
	Side          OrderSide
	Price         float64
	Quantity      int
	Fees          float64
	Theoretical   float64 // model mid at fill time
	QuoteBid      float64
	QuoteAsk      float64
	Timestamp     time.Time
}

// SignedQuantity returns the fill quantity signed by side (buys positive).
func (f Fill) SignedQuantity() int {
	if f.Side == OrderSideSell {
		return -f.Quantity
	}
	return f.Quantity
}
